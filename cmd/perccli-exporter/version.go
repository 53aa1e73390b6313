package main

import (
	"fmt"

	"github.com/sigreer/perccli-exporter/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("perccli-exporter", version.Version)
	},
}
