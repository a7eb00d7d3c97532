package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "servisdesk",
	Short:         "ServisDesk helpdesk service",
	Long:          `Ticket tracking helpdesk: HTTP API, schema migrations and operator tooling.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration")

	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "Administrator username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@example.com", "Administrator email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Administrator password")
	_ = createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(seedCmd)
}
