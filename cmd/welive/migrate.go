package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/june5815/welive/internal/observability/logger"
	"github.com/june5815/welive/internal/store/v2/adapters/pg"
)

func migrateCmd(g *globals) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Aplica o revierte las migraciones embebidas",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.Storage.Driver != "postgres" {
				return errors.New("migrate: solo aplica a storage.driver=postgres")
			}
			var up bool
			switch args[0] {
			case "up":
				up = true
			case "down":
				if steps == 0 {
					return errors.New("migrate down: --steps es obligatorio")
				}
			default:
				return fmt.Errorf("migrate: acción desconocida %q", args[0])
			}

			res, err := pg.Migrate(g.cfg.Storage.DSN, up, steps)
			if err != nil {
				return err
			}
			logger.From(cmd.Context()).Info("migrate done",
				logger.String("action", args[0]),
				zap.Uint("schema_version", res.Version),
				logger.Bool("dirty", res.Dirty),
				logger.Bool("changed", res.Changed),
			)
			fmt.Printf("schema version=%d dirty=%v changed=%v\n", res.Version, res.Dirty, res.Changed)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "cantidad de pasos (0 = todas; obligatorio en down)")
	return cmd
}
