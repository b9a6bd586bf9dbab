package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iceXai/ccip-xo-id/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of xoid",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("xoid %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
