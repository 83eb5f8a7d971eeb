package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func statsFlags(args ...string) (*pflag.FlagSet, error) {
	flags := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Int("retries", 15, "")
	flags.String("from-time", "", "")
	flags.String("to-time", "", "")
	flags.Uint64("from-block", 0, "")
	flags.Uint64("to-block", 0, "")
	flags.Bool("collect-failures", false, "")
	return flags, flags.Parse(args)
}

func TestLoadStatsDefaults(t *testing.T) {
	flags, err := statsFlags("--rpc", "http://localhost:8545", "--from-block", "10", "--to-block", "20")
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadStats("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.UseBlocks || cfg.FromBlock != 10 || cfg.ToBlock != 20 {
		t.Fatalf("block bounds mismatch: %+v", cfg)
	}
	if cfg.Retries != 15 || cfg.Concurrency != 10 || cfg.BlockPeriod != 15*time.Second || cfg.TokenDecimals != 18 {
		t.Fatalf("defaults mismatch: %+v", cfg.Common)
	}
	if cfg.MaxSearchSteps != 10000 || cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("defaults mismatch: %+v", cfg.Common)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadStatsEnvOverride(t *testing.T) {
	t.Setenv("METRICS_RPC", "http://env:8545")
	t.Setenv("METRICS_CONCURRENCY", "3")
	t.Setenv("METRICS_FROM_TIME", "2018-06-25")
	t.Setenv("METRICS_TO_TIME", "1530057600")

	flags, err := statsFlags()
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := LoadStats("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://env:8545" || cfg.Concurrency != 3 {
		t.Fatalf("env not applied: %+v", cfg.Common)
	}
	if cfg.UseBlocks {
		t.Fatalf("expected time bounds")
	}
	if !cfg.FromTime.Equal(time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)) || !cfg.ToTime.Equal(time.Date(2018, 6, 27, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("time bounds mismatch: %s %s", cfg.FromTime, cfg.ToTime)
	}
}

func TestLoadStatsRequiresRange(t *testing.T) {
	flags, err := statsFlags("--rpc", "http://localhost:8545")
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := LoadStats("", flags); err == nil {
		t.Fatalf("expected error without range")
	}

	flags, err = statsFlags("--from-block", "1", "--to-block", "2", "--from-time", "2018-06-25")
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := LoadStats("", flags); err == nil {
		t.Fatalf("expected error for mixed bounds")
	}
}

func TestLoadDailyConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	content := "rpc: http://file:8545\nfrom: \"2018-07-01\"\nformat: jsonl\nday-concurrency: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	now := time.Date(2018, 7, 10, 15, 30, 0, 0, time.UTC)
	cfg, err := LoadDaily(path, nil, now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://file:8545" || cfg.Format != "jsonl" || cfg.DayConcurrency != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if !cfg.From.Equal(time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %s", cfg.From)
	}
	if !cfg.To.Equal(time.Date(2018, 7, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %s", cfg.To)
	}
	if !cfg.CheckpointEnabled {
		t.Fatalf("checkpoint should default to enabled")
	}
}

func TestLoadDailyDefaultsFrom(t *testing.T) {
	cfg, err := LoadDaily("", nil, time.Date(2018, 7, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.From.Equal(FirstDay) || cfg.Format != "csv" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadDailyCheckpointFollowsOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	content := "out: ./data/goerli.jsonl\nnetwork-id: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadDaily(path, nil, time.Date(2018, 7, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Checkpoint != "./data/goerli.5.checkpoint.json" {
		t.Fatalf("checkpoint = %q", cfg.Checkpoint)
	}

	mainnet := CheckpointPath("./data/met-daily.csv", 1)
	if mainnet == CheckpointPath("./data/met-daily.csv", 5) || mainnet == CheckpointPath("./data/other.csv", 1) {
		t.Fatalf("checkpoint paths collide for different outputs or networks")
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{in: "", want: time.Time{}},
		{in: "1529884800", want: time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)},
		{in: "2018-06-25", want: time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)},
		{in: "2018-06-25T02:00:00+02:00", want: time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTime(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: got %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}
