package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hermes-backend/config"
	"hermes-backend/store"
)

var seedSample bool

var initDBCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create tables and indexes, optionally loading sample personnel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := config.NewLogger(cfg)

		ctx := cmd.Context()
		backend, err := store.Open(ctx, cfg.StoreOptions())
		if err != nil {
			return fmt.Errorf("gagal membuka database: %w", err)
		}
		defer backend.Close()

		personnel, users := variants(cfg)
		if err := backend.Migrate(ctx, personnel, users); err != nil {
			return fmt.Errorf("gagal membuat skema: %w", err)
		}
		log.WithField("driver", backend.Driver()).Info("✅ Skema database siap")

		if !seedSample {
			return nil
		}
		n, err := store.Seed(ctx, backend.Records(personnel), store.SamplePersonnel)
		if err != nil {
			return fmt.Errorf("gagal mengisi data contoh: %w", err)
		}
		log.WithField("inserted", n).Info("✅ Data contoh personnel dimuat")
		return nil
	},
}

func init() {
	initDBCmd.Flags().BoolVar(&seedSample, "seed", false, "insert the sample personnel rows")
}
