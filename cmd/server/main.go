// Command socialfeed runs the social feed API server.
//
// With no subcommand it serves. "migrate" brings the store schema up to date
// and exits; "keygen" prints a fresh content encryption key.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/socialfeed/internal/cipher"
	"github.com/sakif/socialfeed/internal/config"
	"github.com/sakif/socialfeed/internal/server"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "socialfeed",
	Short:        "Social feed API server",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		store, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		// sqlite migrates on open; MongoDB builds its indexes on open.
		if v, ok := store.(interface {
			SchemaVersion() (uint, bool, error)
		}); ok {
			version, dirty, err := v.SchemaVersion()
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			logger.Info("schema up to date", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
			return nil
		}
		logger.Info("indexes ensured", slog.String("database", cfg.StoreDatabase))
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a new base64 content encryption key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := cipher.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, migrateCmd, keygenCmd)
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.NewLogger(os.Stdout), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
