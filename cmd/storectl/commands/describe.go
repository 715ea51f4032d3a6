/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/suparena/persistence"
	"github.com/suparena/persistence/config"
	"github.com/suparena/persistence/storagemodels"
)

type storeRow struct {
	Index         int    `json:"index"`
	Kind          string `json:"kind"`
	Configuration string `json:"configuration,omitempty"`
	Path          string `json:"path"`
	Container     string `json:"container,omitempty"`
	Scope         string `json:"scope,omitempty"`
}

func rows(descs []storagemodels.StoreDescription) []storeRow {
	out := make([]storeRow, len(descs))
	for i, desc := range descs {
		out[i] = storeRow{
			Index:         i,
			Kind:          desc.Spec.Kind.String(),
			Configuration: desc.Configuration,
			Path:          desc.Path,
		}
		if desc.Cloud != nil {
			out[i].Container = desc.Cloud.ContainerID
			out[i].Scope = string(desc.Cloud.Scope)
		}
	}
	return out
}

func describe(cfg *config.Config) ([]storagemodels.StoreDescription, error) {
	dir := cfg.Directory
	if dir == "" {
		var err error
		if dir, err = persistence.DefaultDirectory(cfg.Model); err != nil {
			return nil, err
		}
	}

	specs, err := cfg.StoreSpecs()
	if err != nil {
		return nil, err
	}
	descs := make([]storagemodels.StoreDescription, len(specs))
	for i, spec := range specs {
		if descs[i], err = spec.Describe(dir, cfg.CloudContainer); err != nil {
			return nil, fmt.Errorf("stores[%d]: %w", i, err)
		}
	}
	return descs, nil
}

func newDescribeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the resolved store descriptions",
		Long:  `Resolve every configured store to its file and cloud binding without opening it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, logs, err := opts.load()
			if err != nil {
				return err
			}
			defer logs.Close()
			descs, err := describe(cfg)
			if err != nil {
				return err
			}
			return printRows(cmd, opts, rows(descs))
		},
	}
}

func printRows(cmd *cobra.Command, opts *globalOptions, out []storeRow) error {
	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKIND\tCONFIGURATION\tPATH\tCONTAINER\tSCOPE")
	for _, r := range out {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Index, r.Kind, r.Configuration, r.Path, r.Container, r.Scope)
	}
	return w.Flush()
}
