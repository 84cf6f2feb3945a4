package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"vlan-traffic-simulator/internal/config"
	"vlan-traffic-simulator/internal/engine"
	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/parser"
	"vlan-traffic-simulator/internal/recorder"
	"vlan-traffic-simulator/internal/snapshot"
	"vlan-traffic-simulator/internal/store"
	"vlan-traffic-simulator/internal/topology"
)

var version = "1.0-go"

var (
	cfgFile      string
	logLevel     string
	logFile      string
	providerName string
	topologyFile string
	dsn          string

	cfg *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simulator",
		Short: "A VLAN traffic access-control simulator",
		Long: `simulator evaluates flows between devices of a segmented network against an
ordered ACL and optional security inspection, locally, in batch or as an HTTP service.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: simulator.yaml in /etc/vlan-sim, $HOME/.vlan-sim or .)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	pf.StringVar(&providerName, "provider", "", "Topology provider: 'file', 'mysql' or 'sqlite'")
	pf.StringVar(&topologyFile, "topology", "", "YAML topology file (for 'file' provider, built-in demo topology when empty)")
	pf.StringVar(&dsn, "dsn", "", "Database connection string (for 'mysql' and 'sqlite' providers)")

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newBatchCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newRulesCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFile != "" {
		c.Log.Output = logFile
	}
	if providerName != "" {
		c.Topology.Provider = strings.ToLower(providerName)
	}
	if topologyFile != "" {
		c.Topology.File = topologyFile
	}
	if dsn != "" {
		c.Store.DSN = dsn
	}
	if c.Topology.Provider == config.ProviderMySQL || c.Topology.Provider == config.ProviderSQLite {
		c.Store.Driver = c.Topology.Provider
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	slog.SetDefault(setupLogger(c.Log))
	return nil
}

func setupLogger(lc config.LogConfig) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	switch lc.Output {
	case "", "stderr":
	case "stdout":
		logWriter = os.Stdout
	case "none", "null":
		logWriter = io.Discard
	default:
		if lc.Rotation != nil {
			logWriter = &lumberjack.Logger{
				Filename:   lc.Output,
				MaxSize:    lc.Rotation.MaxSize,
				MaxAge:     lc.Rotation.MaxAge,
				MaxBackups: lc.Rotation.MaxBackups,
				LocalTime:  lc.Rotation.LocalTime,
				Compress:   lc.Rotation.Compress,
			}
			break
		}
		_ = os.MkdirAll(filepath.Dir(lc.Output), 0o755)
		f, err := os.OpenFile(lc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			logWriter = f
		}
		// The logger does not exist yet, so a failed open just falls back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(lc.Level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(logWriter, opts))
	}
	return slog.New(slog.NewJSONHandler(logWriter, opts))
}

// provider is an opened topology source. store is set for database
// providers and is closed by Close.
type provider struct {
	source     snapshot.Source
	store      *store.Store
	inspection model.InspectionConfig
}

func (p *provider) Close() {
	if p != nil && p.store != nil {
		p.store.Close()
	}
}

func loadTopology(ctx context.Context, c *config.Config) (*provider, error) {
	switch c.Topology.Provider {
	case config.ProviderFile:
		if c.Topology.File == "" {
			slog.Info("No topology file given, using the built-in demo topology")
			return &provider{source: &snapshot.Static{
				Segments: topology.DefaultSegments(),
				Rules:    topology.DefaultRules(),
			}}, nil
		}
		file, err := os.Open(c.Topology.File)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		p := parser.NewTopologyParser(file)
		if err := p.Parse(); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", c.Topology.File, err)
		}
		return &provider{
			source:     &snapshot.Static{Segments: p.Segments, Rules: p.Rules},
			inspection: p.Inspection,
		}, nil
	case config.ProviderMySQL, config.ProviderSQLite:
		st, err := openStore(ctx, c)
		if err != nil {
			return nil, err
		}
		return &provider{source: st, store: st}, nil
	default:
		return nil, fmt.Errorf("unknown topology provider: %s", c.Topology.Provider)
	}
}

func openStore(ctx context.Context, c *config.Config) (*store.Store, error) {
	if c.Store.DSN == "" {
		return nil, fmt.Errorf("database connection string must be provided for %s", c.Store.Driver)
	}
	st, err := store.Open(c.Store.Driver, c.Store.DSN, c.Store.Pool, slog.Default())
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return st, nil
}

func newEngine(c *config.Config) *engine.Engine {
	return engine.New(
		engine.WithSeed(c.Engine.Seed),
		engine.WithNameMatching(c.Engine.MatchByName),
		engine.WithLogger(slog.Default()),
	)
}

func newRecorder(c *config.Config, st *store.Store) (recorder.Recorder, error) {
	switch c.Recorder.Type {
	case config.RecorderMemory:
		return recorder.NewRing(c.Recorder.Capacity), nil
	case config.RecorderDB:
		if st == nil {
			return nil, fmt.Errorf("recorder type %q needs a database topology provider", c.Recorder.Type)
		}
		return recorder.StoreRecorder(st), nil
	case config.RecorderRedis:
		rc := c.Recorder.Redis
		return recorder.RedisListRecorder(rc.Addr,
			recorder.DBRedisRecorderOption(rc.DB),
			recorder.UsernameRedisRecorderOption(rc.Username),
			recorder.PasswordRedisRecorderOption(rc.Password),
			recorder.KeyRedisRecorderOption(rc.Key),
			recorder.CapacityRedisRecorderOption(c.Recorder.Capacity),
		), nil
	default:
		return nil, fmt.Errorf("unknown recorder type: %s", c.Recorder.Type)
	}
}

type inspectionFlags struct {
	ips, antiMalware, webFilter bool
}

func (f *inspectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.ips, "ips", false, "Enable intrusion prevention")
	cmd.Flags().BoolVar(&f.antiMalware, "anti-malware", false, "Enable the anti-malware gateway")
	cmd.Flags().BoolVar(&f.webFilter, "web-filter", false, "Enable the web filter (TCP only)")
}

// apply overrides base with every inspection flag set on the command line.
func (f *inspectionFlags) apply(cmd *cobra.Command, base model.InspectionConfig) model.InspectionConfig {
	if cmd.Flags().Changed("ips") {
		base.IPS = f.ips
	}
	if cmd.Flags().Changed("anti-malware") {
		base.AntiMalware = f.antiMalware
	}
	if cmd.Flags().Changed("web-filter") {
		base.WebFilter = f.webFilter
	}
	return base
}
