// Package commands holds the dialog-agent command line.
package commands

import (
	"fmt"

	"dialog-agent/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// appContext is what every subcommand needs once flags are parsed.
type appContext struct {
	cfg    *config.Config
	logger *zap.Logger
}

var (
	configFile string
	app        *appContext
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dialog-agent",
		Short: "Keyword driven NPC dialogue engine",
		Long: `dialog-agent answers player sentences with rows from a knowledge corpus.

Input is spell corrected against the corpus vocabulary, reduced to keywords
by TF-IDF, matched against the tables the partner makes available and
answered with the least worn answer variant.

Configuration comes from config.yaml, .env and environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: initApp,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			config.Cleanup()
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: config.yaml lookup)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("corpus", "", "Corpus directory (overrides CORPUS_PATH)")
	_ = viper.BindPFlag("LOG_LEVEL", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("CORPUS_PATH", cmd.PersistentFlags().Lookup("corpus"))

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewKeywordsCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewForgetCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func initApp(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	}

	tempLogger, err := config.InitLogger("info")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	cfg := config.Load(tempLogger)

	logger, err := config.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("re-initializing logger with configured level: %w", err)
	}
	app = &appContext{cfg: cfg, logger: logger}
	return nil
}
