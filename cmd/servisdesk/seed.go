package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servisdesk/servisdesk/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo identities and tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := service.NewSeedService(rt.identitySvc, rt.tickets, rt.logger).Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "identities created: %d, skipped: %d, tickets created: %d (password %q)\n",
			result.IdentitiesCreated, result.IdentitiesSkipped, result.TicketsCreated, service.DemoPassword)
		return nil
	},
}
