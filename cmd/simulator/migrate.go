package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/parser"
	"vlan-traffic-simulator/internal/topology"
)

func newMigrateCmd() *cobra.Command {
	var (
		seed     bool
		seedFile string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and optionally seed a topology",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				slog.Error("Failed to open store", "driver", cfg.Store.Driver, "error", err)
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			slog.Info("Schema migrated", "driver", cfg.Store.Driver)
			if !seed {
				return nil
			}

			segments, rules := topology.DefaultSegments(), topology.DefaultRules()
			if seedFile != "" {
				if segments, rules, err = readTopologyFile(seedFile); err != nil {
					return err
				}
			}
			seeded, err := st.Seed(ctx, segments, rules)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d segments and %d rules\n", len(segments), len(rules))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "store already holds a topology, seed skipped")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Seed an empty store")
	cmd.Flags().StringVar(&seedFile, "from", "", "YAML topology to seed from (default: built-in demo topology)")
	return cmd
}

func readTopologyFile(path string) ([]model.Segment, []model.Rule, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	p := parser.NewTopologyParser(file)
	if err := p.Parse(); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return p.Segments, p.Rules, nil
}
