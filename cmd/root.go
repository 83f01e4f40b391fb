// Package cmd defines the trackd command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trackd",
		Short: "Go-kart track reservation service: calendar, holds and checkout",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env file is fine; the environment may already
			// be populated.
			_ = godotenv.Load()
		},
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newGenerateCalendarCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newCreateAdminCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
