package main

import (
	"fmt"

	"github.com/spf13/cobra"

	jwtx "github.com/june5815/welive/internal/jwt"
)

func keysCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Utilidades de claves de firma",
		// No necesita config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	keys.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Genera una semilla Ed25519 para JWT_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := jwtx.GenerateKeys()
			if err != nil {
				return err
			}
			fmt.Printf("JWT_SIGNING_KEY=%s\n# kid=%s\n", k.EncodeSeed(), k.KID)
			return nil
		},
	})
	return keys
}
