package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/statekit/statekit/internal/build"
)

// NewVersionCommand returns the command to get the statekit version.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the statekit version",
		Long:  "Return the statekit version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

func version(_ *cobra.Command, _ []string) error {
	log.Printf("statekit version %s commit id %s", build.Version, build.Commit)
	return nil
}
