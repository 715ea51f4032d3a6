/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(opts *globalOptions) *cobra.Command {
	var withCloud bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load every store and report",
		Long: `Open every configured store the way the application does: create missing
files, apply schema migrations and verify the model binding. With --cloud,
cloud stores are also verified against their DynamoDB table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logs, err := opts.load()
			if err != nil {
				return err
			}
			defer logs.Close()

			c, err := openController(cmd.Context(), cfg, logger, withCloud)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := printRows(cmd, opts, rows(c.Descriptions())); err != nil {
				return err
			}
			if !opts.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "%d stores loaded\n", len(c.Descriptions()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withCloud, "cloud", false, "verify cloud containers")
	return cmd
}
