package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servisdesk/servisdesk/internal/service"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a superuser account",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		created, err := rt.identitySvc.CreateSuperuser(cmd.Context(), service.IdentityCreateInput{
			Username:  adminUsername,
			Email:     adminEmail,
			FirstName: "Admin",
			LastName:  "User",
			Password1: adminPassword,
			Password2: adminPassword,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s (id %d)\n", created.Identity.Username, created.Identity.ID)
		return nil
	},
}
