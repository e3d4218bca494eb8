// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ldcheck/internal/loader"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ldcheck",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ldcheck %s\n", version)
		for _, u := range loader.Bundled() {
			fmt.Fprintf(cmd.OutOrStdout(), "  bundled context %s\n", u)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
