package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// NewRootCommand builds a fresh command tree. Every call returns independent
// flag state, which keeps tests and repeated executions isolated.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:     "codesmith",
		Short:   "Codesmith generates complete projects from design and spec documents.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "codesmith"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			if logLevel != "" {
				cfg.SetLoggerLevel(logLevel)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting codesmith", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./codesmith.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "codesmith version %s\n" .Version}}`)

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newLogsCmd())
	return rootCmd
}

// Execute runs the command tree with ctx, logging any failure.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command aborted", zap.Error(err))
		} else {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
	}
	observability.Sync()
	return err
}

// initializeConfig loads .env files, the config file and CODESMITH_* variables into v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	if cfgFile != "" {
		expanded, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("error expanding config path %q: %w", cfgFile, err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.codesmith")
		}
		v.SetConfigName("codesmith")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CODESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in command context")
	}
	return cfg, nil
}
