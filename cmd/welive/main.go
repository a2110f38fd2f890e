// Command welive levanta el núcleo de administración de residentes.
//
//	welive serve                       # ops server (/healthz, /readyz, /metrics)
//	welive migrate up|down [--steps N]
//	welive seed superadmin --username root --password ...
//	welive keys generate               # semilla Ed25519 para JWT_SIGNING_KEY
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/june5815/welive/internal/config"
	"github.com/june5815/welive/internal/observability/logger"
)

// version se inyecta con -ldflags "-X main.version=...".
var version = "dev"

type globals struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func main() {
	g := &globals{
		configPath: envOr("WELIVE_CONFIG", ""),
		envFile:    ".env",
	}

	root := &cobra.Command{
		Use:           "welive",
		Short:         "Backend de administración de residentes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.envFile != "" {
				_ = godotenv.Load(g.envFile)
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config inválida: %w", err)
			}
			g.cfg = cfg
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.App.LogLevel,
				ServiceName: cfg.App.Name,
				Version:     version,
			})
			cmd.SetContext(logger.ToContext(cmd.Context(), logger.Named(cmd.Name())))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", g.configPath, "ruta a config.yaml (env WELIVE_CONFIG); vacío usa solo env")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", g.envFile, "archivo .env opcional")

	root.AddCommand(
		serveCmd(g),
		migrateCmd(g),
		seedCmd(g),
		keysCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
