package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bsaid97/go-attribute-transfer/config"
	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "attribute-transfer",
	Short: "Copy an attribute between geospatial layers by spatial match",
	Long: `Match every feature of a target layer against a source layer using a spatial
rule (intersects, contains, within, touches, equals, vertex-match) and copy
one attribute value from the source feature when exactly one matches.

Ambiguous and missing matches are skipped and reported, never guessed.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevelFlag != "" {
			cfg.LogLevel = strings.ToUpper(logLevelFlag)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transfer and geometry check endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("=== Starting Attribute Transfer Server ===")
		handler := newServer(cfg, slog.Default())
		slog.Info("server is listening", "port", cfg.Port)
		return http.ListenAndServe(":"+cfg.Port, handler)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR); overrides LOG_LEVEL")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
