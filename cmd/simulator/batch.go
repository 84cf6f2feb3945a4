package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"vlan-traffic-simulator/internal/client"
	"vlan-traffic-simulator/internal/engine"
	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/parser"
	"vlan-traffic-simulator/internal/snapshot"
)

type batchResult struct {
	flow parser.Flow
	rec  *model.DecisionRecord
	err  error
}

type batchOptions struct {
	flowsFile     string
	outFile       string
	permittedFile string
	workers       int
	remote        string
	insp          inspectionFlags
}

func newBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate every flow of a CSV file with a pool of workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.flowsFile, "flows", "", "CSV file with Source, Destination and Protocol columns (required)")
	cmd.Flags().StringVar(&opts.outFile, "out", "results.csv", "Output CSV file for all results")
	cmd.Flags().StringVar(&opts.permittedFile, "permitted", "permitted.csv", "Output CSV file for permitted traffic")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "Base URL of a simulator service to evaluate on instead of locally")
	opts.insp.register(cmd)
	cmd.MarkFlagRequired("flows")
	return cmd
}

func runBatch(cmd *cobra.Command, opts *batchOptions) error {
	ctx := cmd.Context()
	slog.Info("Starting batch simulation", "version", version)
	startTime := time.Now()

	// --- 1. Load Topology ---
	slog.Info("Loading topology...", "provider", cfg.Topology.Provider)
	p, err := loadTopology(ctx, cfg)
	if err != nil {
		slog.Error("Failed to load topology", "error", err)
		return err
	}
	defer p.Close()
	snap, err := snapshot.New(p.source, 0).Load(ctx)
	if err != nil {
		slog.Error("Failed to load topology", "error", err)
		return err
	}
	slog.Info("Successfully loaded topology", "segments", len(snap.Segments), "rules", len(snap.Rules))

	// --- 2. Parse Flows ---
	flowsF, err := os.Open(opts.flowsFile)
	if err != nil {
		slog.Error("Failed to open flow file", "path", opts.flowsFile, "error", err)
		return err
	}
	defer flowsF.Close()
	flows, err := parser.ParseFlows(flowsF)
	if err != nil {
		slog.Error("Failed to parse flow file", "error", err)
		return err
	}
	totalTasks := uint64(len(flows))
	slog.Info("Flows parsed", "total_tasks", totalTasks)

	var ev engine.Evaluator = newEngine(cfg)
	if opts.remote != "" {
		ev = client.New(opts.remote)
	}
	inspection := opts.insp.apply(cmd, p.inspection)

	workers := opts.workers
	if workers < 1 {
		workers = 1
	}

	var completedTasks uint64
	progressDone := make(chan struct{})
	if totalTasks > 0 {
		go reportProgress(totalTasks, &completedTasks, progressDone)
	}

	// --- 3. Setup Worker Pool and Channels ---
	tasks := make(chan parser.Flow, workers*100)
	results := make(chan batchResult, workers*100)
	var wg sync.WaitGroup

	slog.Info("Starting result writer", "output_file", opts.outFile, "permitted_file", opts.permittedFile)
	var writerWg sync.WaitGroup
	var summary batchSummary
	writerWg.Add(1)
	go resultWriter(&writerWg, results, opts.outFile, opts.permittedFile, &completedTasks, &summary)

	slog.Info("Starting evaluator workers", "count", workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, &wg, i+1, ev, snap, inspection, tasks, results)
	}

	// --- 4. Produce ---
	go func() {
		for _, f := range flows {
			tasks <- f
		}
		close(tasks)
		slog.Info("Task producer finished", "total_tasks", len(flows))
	}()

	wg.Wait()
	close(results)
	writerWg.Wait()
	close(progressDone)

	if summary.writeErr != nil {
		return summary.writeErr
	}
	slog.Info("Simulation complete",
		"duration", time.Since(startTime),
		"permitted", summary.permitted,
		"blocked", summary.blocked,
		"errors", summary.failed)
	fmt.Fprintf(cmd.OutOrStdout(), "%d flows: %d permitted, %d blocked, %d errors\n",
		len(flows), summary.permitted, summary.blocked, summary.failed)
	return nil
}

func reportProgress(totalTasks uint64, completedTasks *uint64, done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	var lastLogged uint64
	for {
		select {
		case <-ticker.C:
			n := atomic.LoadUint64(completedTasks)
			if n == lastLogged {
				continue
			}
			remaining := uint64(0)
			if n < totalTasks {
				remaining = totalTasks - n
			}
			percent := float64(n) / float64(totalTasks) * 100
			slog.Info("Progress", "total_tasks", totalTasks, "completed_tasks", n, "remaining_tasks", remaining, "percent", fmt.Sprintf("%.2f", percent))
			lastLogged = n
			if n >= totalTasks {
				return
			}
		case <-done:
			return
		}
	}
}

func worker(ctx context.Context, wg *sync.WaitGroup, id int, ev engine.Evaluator, snap *snapshot.Snapshot, inspection model.InspectionConfig, tasks <-chan parser.Flow, results chan<- batchResult) {
	defer wg.Done()
	slog.Debug("Worker started", "id", id)
	for flow := range tasks {
		rec, err := ev.Evaluate(ctx, &model.Request{
			SourceDeviceID: flow.Source,
			DestDeviceID:   flow.Destination,
			Protocol:       flow.Protocol,
			Segments:       snap.Segments,
			Rules:          snap.Rules,
			Inspection:     inspection,
		})
		results <- batchResult{flow: flow, rec: rec, err: err}
	}
	slog.Debug("Worker finished", "id", id)
}

type batchSummary struct {
	permitted, blocked, failed int
	writeErr                   error
}

var resultHeader = []string{"line", "source", "destination", "protocol", "source_segment", "destination_segment", "outcome", "matched_rule_id", "inspector", "reason"}

func resultWriter(wg *sync.WaitGroup, results <-chan batchResult, outPath, permittedPath string, completedTasks *uint64, summary *batchSummary) {
	defer wg.Done()
	// Results must be drained even when the files cannot be written.
	defer func() {
		for range results {
		}
	}()

	outFile, err := os.Create(outPath)
	if err != nil {
		slog.Error("Failed to create output file", "path", outPath, "error", err)
		summary.writeErr = err
		return
	}
	defer outFile.Close()

	permittedFile, err := os.Create(permittedPath)
	if err != nil {
		slog.Error("Failed to create permitted file", "path", permittedPath, "error", err)
		summary.writeErr = err
		return
	}
	defer permittedFile.Close()

	outWriter := csv.NewWriter(outFile)
	defer outWriter.Flush()
	permittedWriter := csv.NewWriter(permittedFile)
	defer permittedWriter.Flush()

	outWriter.Write(resultHeader)
	permittedWriter.Write(resultHeader)

	var written uint64
	for result := range results {
		record := []string{
			strconv.Itoa(result.flow.Line),
			result.flow.Source,
			result.flow.Destination,
			string(result.flow.Protocol),
		}
		switch {
		case result.err != nil:
			summary.failed++
			record = append(record, "", "", "error", "", "", result.err.Error())
		default:
			rec := result.rec
			record = append(record, rec.SourceSegment, rec.DestSegment, string(rec.Outcome), rec.MatchedRuleID, rec.Inspector, rec.Reason)
			if rec.Outcome == model.Permitted {
				summary.permitted++
			} else {
				summary.blocked++
			}
		}
		outWriter.Write(record)
		if result.err == nil && result.rec.Outcome == model.Permitted {
			permittedWriter.Write(record)
		}
		written++
		if written%1024 == 0 {
			atomic.StoreUint64(completedTasks, written)
		}
	}
	atomic.StoreUint64(completedTasks, written)
	slog.Info("Result writer finished")
}
