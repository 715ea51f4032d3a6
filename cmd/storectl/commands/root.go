/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package commands implements the storectl command tree.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/suparena/persistence"
	"github.com/suparena/persistence/cloud/ddb"
	"github.com/suparena/persistence/config"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/telemetry"
)

type globalOptions struct {
	configPath string
	envFiles   []string
	jsonOutput bool
	verbose    bool
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the storectl command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "storectl",
		Short: "Inspect and sync persistence stores",
		Long: `storectl resolves, loads and syncs the stores described by a persistence
configuration file.

Commands:
  - describe: print the resolved store descriptions
  - check:    load every store and report
  - sync:     push the cloud outbox to DynamoDB`,
		Version:       persistence.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "persistence.yaml", "config file path")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newDescribeCommand(opts))
	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newSyncCommand(opts))
	rootCmd.AddCommand(newVersionCommand(opts))

	return rootCmd
}

// load reads the configuration and builds its logger. The closer releases
// the log output.
func (o *globalOptions) load() (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, logs, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, logger, logs, nil
}

// model declares the configurations of cfg. Stores are handled as a whole,
// so no entity types are registered.
func model(cfg *config.Config) *registry.Model {
	m := registry.NewModel(cfg.Model)
	for _, s := range cfg.Stores {
		if s.Configuration != "" {
			m.DeclareConfigurations(s.Configuration)
		}
	}
	return m
}

// openController loads the stores of cfg. With withCloud, cloud stores are
// verified against and synced to DynamoDB.
func openController(ctx context.Context, cfg *config.Config, logger zerolog.Logger, withCloud bool) (*persistence.Controller, error) {
	opts, err := cfg.ControllerOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		persistence.WithLogger(logger),
		persistence.WithMetrics(telemetry.NewMetrics(cfg.Metrics)),
	)

	if withCloud && cfg.HasCloudStores() {
		client, err := ddb.NewClient(ctx, cfg.DynamoDB.ClientConfig())
		if err != nil {
			return nil, err
		}
		opts = append(opts, persistence.WithCloud(ddb.New(client, ddb.WithLogger(logger))))
	}

	specs, err := cfg.StoreSpecs()
	if err != nil {
		return nil, err
	}
	return persistence.New(ctx, model(cfg), specs, opts...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
