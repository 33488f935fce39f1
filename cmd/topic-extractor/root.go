package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/comrados/crawlergram/internal/logging"
	"github.com/comrados/crawlergram/pkg/topics"
	"github.com/comrados/crawlergram/pkg/topics/config"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
	"github.com/comrados/crawlergram/pkg/topics/store"
	"github.com/comrados/crawlergram/pkg/topics/store/sqlite"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "topic-extractor",
	Short: "Extract topics from crawled Telegram dialogs",
	Long: `Reads dialogs and messages from the message store, builds documents,
tokenizes, filters stopwords, stems the vocabulary and runs topic models
over every dialog.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "message database, overrides storage.path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error, overrides log.level")
}

// loadConfig reads --config, or the defaults when it is not set, and
// applies the global overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := sqlite.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Storage.Path, err)
	}
	return st, nil
}

// buildExtractor wires the store and every configured component. The
// returned cleanup closes the store.
func buildExtractor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*topics.Extractor, store.Store, func(), error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ex, err := topics.NewFromConfig(st, cfg, logger)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	return ex, st, func() { ex.Close() }, nil
}

// lookupDialog returns the stored dialog with the given ID.
func lookupDialog(ctx context.Context, st store.Store, id int64) (store.Dialog, error) {
	d, ok, err := st.GetDialog(ctx, id)
	if err != nil {
		return store.Dialog{}, err
	}
	if !ok {
		return store.Dialog{}, fmt.Errorf("dialog %d: %w", id, internalerr.ErrNotFound)
	}
	return d, nil
}
