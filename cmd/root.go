// Package cmd holds the command line entry points of the service.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hermes-backend/config"
	"hermes-backend/models"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "Hermes personnel directory API and chat bot",
	// Without a subcommand the server starts.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a .env or config.yaml file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("gagal memuat konfigurasi: %w", err)
	}
	return cfg, nil
}

// variants returns the variants served by this deployment, with the users
// metadata column toggled by configuration.
func variants(cfg *config.Config) (models.Variant, models.Variant) {
	users := models.Users
	users.HasMetadata = cfg.UsersMetadata
	return models.Personnel, users
}
