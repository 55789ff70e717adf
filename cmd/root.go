package cmd

import (
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "statekit",
		Short: "A unidirectional-data-flow state container for Go",
		Long: `A unidirectional-data-flow state container for Go.
statekit holds application state in a single cell that is only updated through a serialized pipeline of middlewares and pure reducers, with reactive observation of every published state.`,
	}
}
