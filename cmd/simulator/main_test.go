package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"vlan-traffic-simulator/internal/api"
	"vlan-traffic-simulator/internal/config"
	"vlan-traffic-simulator/internal/engine"
	"vlan-traffic-simulator/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCmd executes the root command with a quiet config and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "simulator.yaml", "log:\n  output: none\n")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	if cmd == nil {
		t.Fatal("newRootCmd returned nil")
	}
	if cmd.Use != "simulator" {
		t.Errorf("Expected use 'simulator', got '%s'", cmd.Use)
	}
	for _, name := range []string{"evaluate", "batch", "serve", "migrate", "rules"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("Expected subcommand %s", name)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	levels := []string{"DEBUG", "INFO", "WARN", "ERROR", "UNKNOWN"}
	for _, lvl := range levels {
		l := setupLogger(config.LogConfig{Level: lvl})
		if l == nil {
			t.Errorf("setupLogger returned nil for level %s", lvl)
		}
	}

	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")
	l1 := setupLogger(config.LogConfig{Level: "INFO", Output: logFile, Format: "text"})
	l1.Info("hello")
	if data, _ := os.ReadFile(logFile); !strings.Contains(string(data), "hello") {
		t.Errorf("expected log file to contain the message, got %q", data)
	}

	rotated := filepath.Join(tmpDir, "rotated.log")
	l2 := setupLogger(config.LogConfig{Output: rotated, Rotation: &config.LogRotationConfig{MaxSize: 1}})
	l2.Info("rotated")
	if _, err := os.Stat(rotated); err != nil {
		t.Errorf("expected rotated log file to exist: %v", err)
	}

	// Unwritable path falls back to stderr.
	if l3 := setupLogger(config.LogConfig{Output: "/proc/nonexistent/log.log"}); l3 == nil {
		t.Error("setupLogger should return a logger even if file fails")
	}
}

func TestLoadTopology(t *testing.T) {
	ctx := context.Background()
	base := func() *config.Config {
		return &config.Config{Topology: config.TopologyConfig{Provider: config.ProviderFile}}
	}

	p, err := loadTopology(ctx, base())
	if err != nil {
		t.Fatalf("expected built-in topology, got %v", err)
	}
	segments, _ := p.source.ListSegments(ctx)
	if len(segments) != 4 {
		t.Errorf("expected 4 demo segments, got %d", len(segments))
	}

	c := base()
	c.Topology.Provider = "ldap"
	if _, err := loadTopology(ctx, c); err == nil {
		t.Error("Expected error for unknown provider")
	}

	c = base()
	c.Topology.File = "/nonexistent/topology.yaml"
	if _, err := loadTopology(ctx, c); err == nil {
		t.Error("Expected error for nonexistent topology file")
	}

	c = base()
	c.Topology.File = writeFile(t, t.TempDir(), "topo.yaml", "segments:\n  - vlan: 5\n    devices:\n      - id: a\ninspection:\n  ips: true\n")
	p, err = loadTopology(ctx, c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !p.inspection.IPS {
		t.Error("expected inspection defaults from the topology file")
	}

	c = base()
	c.Topology.Provider = config.ProviderSQLite
	c.Store.Driver = config.ProviderSQLite
	if _, err := loadTopology(ctx, c); err == nil {
		t.Error("Expected error for missing sqlite DSN")
	}
}

func TestEvaluateCommand(t *testing.T) {
	out, err := runCmd(t, "evaluate", "--src", "d1", "--dst", "d5", "--protocol", "udp")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	var rec model.DecisionRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("output is not a decision record: %v\n%s", err, out)
	}
	if rec.Outcome != model.Permitted || rec.MatchedRuleID != "r1" {
		t.Errorf("expected permitted by r1, got %s (%s)", rec.Outcome, rec.MatchedRuleID)
	}

	if _, err := runCmd(t, "evaluate", "--src", "d1", "--dst", "d5", "--protocol", "ANY"); err == nil {
		t.Error("Expected error for a non-concrete protocol")
	}
}

func TestEvaluateRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &api.Server{Engine: engine.New(), Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ts := httptest.NewServer(srv.Router(nil))
	defer ts.Close()

	out, err := runCmd(t, "evaluate", "--src", "d4", "--dst", "d1", "--protocol", "tcp", "--remote", ts.URL)
	if err != nil {
		t.Fatalf("remote evaluate failed: %v", err)
	}
	if !strings.Contains(out, `"blocked-by-policy"`) || !strings.Contains(out, `"r3"`) {
		t.Errorf("expected IoT to admin to be denied by r3, got %s", out)
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	flows := writeFile(t, dir, "flows.csv", "Source,Destination,Protocol\n"+
		"d1,d5,TCP\n"+
		"d3,d5,UDP\n"+
		"d1,d2,ICMP\n"+
		"d4,d1,TCP\n"+
		"d1,ghost,TCP\n")
	outPath := filepath.Join(dir, "results.csv")
	permittedPath := filepath.Join(dir, "permitted.csv")

	out, err := runCmd(t, "batch", "--flows", flows, "--out", outPath, "--permitted", permittedPath, "-w", "3")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if !strings.Contains(out, "5 flows: 2 permitted, 3 blocked, 0 errors") {
		t.Errorf("unexpected summary %q", out)
	}

	readRows := func(path string) [][]string {
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		return rows
	}
	if rows := readRows(outPath); len(rows) != 6 {
		t.Errorf("expected header plus 5 rows, got %d", len(rows))
	}
	permitted := readRows(permittedPath)
	if len(permitted) != 3 {
		t.Fatalf("expected header plus 2 permitted rows, got %d", len(permitted))
	}
	for _, row := range permitted[1:] {
		if row[6] != string(model.Permitted) {
			t.Errorf("non-permitted row in permitted file: %v", row)
		}
	}

	bad := writeFile(t, dir, "bad.csv", "Source,Destination,Protocol\nd1,d5,GRE\n")
	if _, err := runCmd(t, "batch", "--flows", bad, "--out", outPath, "--permitted", permittedPath); err == nil {
		t.Error("Expected error for malformed flow file")
	}
}

func TestMigrateAndRulesCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	db := []string{"--provider", "sqlite", "--dsn", dbPath}

	out, err := runCmd(t, append(db, "migrate", "--seed")...)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "seeded 4 segments and 3 rules") {
		t.Errorf("unexpected migrate output %q", out)
	}
	out, _ = runCmd(t, append(db, "migrate", "--seed")...)
	if !strings.Contains(out, "seed skipped") {
		t.Errorf("second seed should be skipped, got %q", out)
	}

	out, err = runCmd(t, append(db, "rules", "add", "--id", "r9", "--src", "20", "--dst", "10", "--protocol", "icmp", "--action", "deny")...)
	if err != nil {
		t.Fatalf("rules add failed: %v", err)
	}
	if !strings.Contains(out, "created rule r9 with priority 4") {
		t.Errorf("unexpected add output %q", out)
	}

	out, err = runCmd(t, append(db, "rules", "list")...)
	if err != nil {
		t.Fatalf("rules list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 || !strings.Contains(lines[4], "r9") {
		t.Errorf("expected r9 last of 4 rules, got:\n%s", out)
	}

	out, err = runCmd(t, append(db, "evaluate", "--src", "d3", "--dst", "d1", "--protocol", "icmp")...)
	if err != nil {
		t.Fatalf("evaluate against store failed: %v", err)
	}
	if !strings.Contains(out, `"matchedRuleId": "r9"`) {
		t.Errorf("expected the stored rule to match, got %s", out)
	}

	if _, err := runCmd(t, append(db, "rules", "delete", "r9")...); err != nil {
		t.Fatalf("rules delete failed: %v", err)
	}
	if _, err := runCmd(t, append(db, "rules", "delete", "r9")...); err == nil {
		t.Error("Expected error deleting a missing rule")
	}
}
