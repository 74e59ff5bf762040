// Command cop is the outer CLI collaborator for the ChainOfProduct
// core: it exposes keygen, publish, protect, check, unprotect,
// buyer-sign, share, and audit over the pipeline package, reading
// identities from a file-backed KeyStore and counterparties from a
// seed-file PublicKeyDirectory.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/config"
	_ "github.com/chainofproduct/cop/internal/cryptoinit"
	"github.com/chainofproduct/cop/internal/logger"
	"github.com/chainofproduct/cop/internal/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "cop",
	Short: "ChainOfProduct CLI - protect and share supply-chain transaction documents",
	Long: `cop seals a transaction document into a protected envelope for a seller,
an optional buyer, and any number of direct recipients and groups, then lets
recipients unprotect it, buyers countersign it, and sellers audit every
disclosure made against it.`,
	// PersistentPreRunE runs once flags are parsed, so --config is
	// available here — loading it any earlier in main would only ever
	// see its zero value.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		cfg, err := config.LoadFromFile(configFile)
		if err != nil {
			return err
		}
		applyConfig(cfg)
		return nil
	},
}

var configFile string

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", logger.Error(err))
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML or JSON)")
}

// applyConfig sets the default logger's level and, if enabled, starts
// the Prometheus metrics endpoint in the background for the lifetime
// of the process.
func applyConfig(cfg *config.Config) {
	logger.GetDefaultLogger().SetLevel(logLevel(cfg.Logging.Level))

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Listen, cfg.Metrics.Path); err != nil {
				logger.Warn("metrics server stopped", logger.Error(err))
			}
		}()
	}
}

func logLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
