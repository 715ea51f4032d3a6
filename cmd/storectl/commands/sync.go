/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the cloud outbox to DynamoDB",
		Long: `Push every committed change recorded by the cloud stores to their DynamoDB
table, oldest first. Changes are removed from the outbox once accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logs, err := opts.load()
			if err != nil {
				return err
			}
			defer logs.Close()
			if !cfg.HasCloudStores() {
				return fmt.Errorf("no cloud stores configured")
			}

			c, err := openController(cmd.Context(), cfg, logger, true)
			if err != nil {
				return err
			}
			defer c.Close()

			pushed, err := c.SyncCloud(cmd.Context())
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"pushed": pushed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d changes pushed\n", pushed)
			return nil
		},
	}
}
