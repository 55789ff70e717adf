package main

import (
	"os"

	"github.com/statekit/statekit/cmd"
	"github.com/statekit/statekit/cmd/demo"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	demoCmd := demo.NewDemoCommand()
	rootCmd.AddCommand(demoCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
