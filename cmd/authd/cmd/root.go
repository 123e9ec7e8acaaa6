package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhaaraai/go-auth/internal/config"
	"github.com/dhaaraai/go-auth/internal/logging"
)

// Version is set at build time
var Version = "dev"

var (
	configPath string
	cfg        *config.Settings
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "Bearer token authentication service",
	Long: `authd registers identities, issues signed bearer tokens on login and
resolves the request principal from the Authorization header.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		level := cfg.Log.Level
		if cfg.Debug {
			level = "debug"
		}
		logger = logging.SetDefault("authd", Version, cfg.Log.Format, level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("dsn", "", "Database DSN, postgres:// or a sqlite file (env: DHAARA_AUTH_DATABASE__DSN)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or text (env: DHAARA_AUTH_LOG__FORMAT)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (env: DHAARA_AUTH_LOG__LEVEL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and error stacks (env: DHAARA_AUTH_DEBUG)")

	rootCmd.AddCommand(serveCmd, dbCmd, promoteCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
