package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pennywise/internal/api"
	"pennywise/internal/config"
	"pennywise/internal/engine"
	"pennywise/internal/store"
)

var (
	flagAPIURL  string
	flagToken   string
	flagNoCache bool
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "pennywise",
	Short: "Mindful budgeting from the terminal",
	Long:  "Track daily spending, savings goals, and impulse resistance against your budget service.",
	RunE:  runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Budget service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "API token (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the local snapshot mirror")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagToken != "" {
		cfg.API.Token = flagToken
	}
	return cfg, nil
}

// openSession is the shared session path used by the one-shot commands:
// config, client, mirror, engine, first load. The returned cleanup closes
// the session and the mirror.
func openSession(ctx context.Context, opts ...engine.Option) (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.API.Token == "" && !config.Exists() {
		fmt.Fprintln(os.Stderr, "  No config found; run `pennywise setup` to get started.")
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Token)

	var (
		cache  engine.Cache
		mirror *store.Mirror
	)
	if !flagNoCache {
		mirror, err = store.Open(config.CachePath(cfg))
		if err != nil {
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable: %v\n", err)
			}
		} else {
			cache = mirror
		}
	}

	opts = append(opts, engine.WithRefreshInterval(config.RefreshInterval(cfg)))
	eng := engine.New(client, cache, opts...)

	if err := eng.Start(ctx); err != nil {
		if mirror != nil {
			_ = mirror.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		eng.Close()
		if mirror != nil {
			_ = mirror.Close()
		}
	}
	return eng, cleanup, nil
}
