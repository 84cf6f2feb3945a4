package main

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"vlan-traffic-simulator/internal/client"
	"vlan-traffic-simulator/internal/config"
	"vlan-traffic-simulator/internal/engine"
	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/snapshot"
)

func newEvaluateCmd() *cobra.Command {
	var (
		src, dst, protocol, remote string
		insp                       inspectionFlags
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a single flow and print its decision record",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := loadTopology(ctx, cfg)
			if err != nil {
				slog.Error("Failed to load topology", "error", err)
				return err
			}
			defer p.Close()

			snap, err := snapshot.New(p.source, 0).Load(ctx)
			if err != nil {
				return err
			}

			req := &model.Request{
				SourceDeviceID: src,
				DestDeviceID:   dst,
				Protocol:       model.Protocol(protocol),
				Segments:       snap.Segments,
				Rules:          snap.Rules,
				Inspection:     insp.apply(cmd, p.inspection),
			}

			var ev engine.Evaluator = newEngine(cfg)
			if remote != "" {
				slog.Info("Evaluating on remote simulator", "url", remote)
				ev = client.New(remote)
			}
			rec, err := ev.Evaluate(ctx, req)
			if err != nil {
				return err
			}

			if cfg.Recorder.Type != config.RecorderMemory {
				r, err := newRecorder(cfg, p.store)
				if err != nil {
					return err
				}
				defer r.Close()
				if err := r.Record(ctx, rec); err != nil {
					slog.Warn("Failed to record decision", "id", rec.ID, "error", err)
				}
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "Source device id (required)")
	cmd.Flags().StringVar(&dst, "dst", "", "Destination device id (required)")
	cmd.Flags().StringVar(&protocol, "protocol", "TCP", "Protocol: TCP, UDP or ICMP")
	cmd.Flags().StringVar(&remote, "remote", "", "Base URL of a simulator service to evaluate on instead of locally")
	insp.register(cmd)
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst")
	return cmd
}
