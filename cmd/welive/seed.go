package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/june5815/welive/internal/services/users"
)

func seedCmd(g *globals) *cobra.Command {
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Carga datos iniciales",
	}

	var in users.AccountInput
	sa := &cobra.Command{
		Use:   "superadmin",
		Short: "Crea el SUPER_ADMIN aprobado (idempotente por username)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context(), g.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.users.SeedSuperAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("superadmin id=%s username=%s status=%s\n", u.ID, u.Username, u.JoinStatus)
			return nil
		},
	}
	f := sa.Flags()
	f.StringVar(&in.Username, "username", envOr("SEED_USERNAME", ""), "username (env SEED_USERNAME)")
	f.StringVar(&in.Password, "password", envOr("SEED_PASSWORD", ""), "password (env SEED_PASSWORD)")
	f.StringVar(&in.Name, "name", "Super Admin", "nombre visible")
	f.StringVar(&in.Email, "email", envOr("SEED_EMAIL", ""), "email (env SEED_EMAIL)")
	f.StringVar(&in.Contact, "contact", envOr("SEED_CONTACT", ""), "contacto (env SEED_CONTACT)")

	seed.AddCommand(sa)
	return seed
}
