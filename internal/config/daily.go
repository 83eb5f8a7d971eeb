package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FirstDay is the first day of the daily dataset.
var FirstDay = time.Date(2018, 6, 25, 0, 0, 0, 0, time.UTC)

// DailyConfig holds configuration for the daily command.
type DailyConfig struct {
	Common
	From              time.Time
	To                time.Time
	DayConcurrency    int
	Out               string
	Format            string
	PGDSN             string
	Checkpoint        string
	CheckpointEnabled bool
}

// LoadDaily merges config file, environment variables, and flags into DailyConfig.
// To defaults to the start of the current UTC day.
func LoadDaily(cfgFile string, flags *pflag.FlagSet, now time.Time) (DailyConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return DailyConfig{}, err
	}
	v.SetDefault("day-concurrency", 4)
	v.SetDefault("out", "./data/met-daily.csv")
	v.SetDefault("format", "csv")
	v.SetDefault("checkpoint-enabled", true)

	common, err := loadCommon(v)
	if err != nil {
		return DailyConfig{}, err
	}

	cfg := DailyConfig{
		Common:            common,
		DayConcurrency:    v.GetInt("day-concurrency"),
		Out:               v.GetString("out"),
		Format:            v.GetString("format"),
		PGDSN:             v.GetString("pg-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
	}

	if cfg.Checkpoint == "" {
		cfg.Checkpoint = CheckpointPath(cfg.Out, cfg.NetworkID)
	}

	if cfg.From, err = ParseTime(v.GetString("from")); err != nil {
		return DailyConfig{}, fmt.Errorf("parse from: %w", err)
	}
	if cfg.From.IsZero() {
		cfg.From = FirstDay
	}
	if cfg.To, err = ParseTime(v.GetString("to")); err != nil {
		return DailyConfig{}, fmt.Errorf("parse to: %w", err)
	}
	if cfg.To.IsZero() {
		now = now.UTC()
		cfg.To = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	switch cfg.Format {
	case "csv", "jsonl":
	default:
		return DailyConfig{}, fmt.Errorf("unsupported format: %s", cfg.Format)
	}
	return cfg, nil
}

// CheckpointPath derives a checkpoint file next to out, keyed by the output
// name and network.
func CheckpointPath(out string, networkID uint64) string {
	base := strings.TrimSuffix(out, filepath.Ext(out))
	return fmt.Sprintf("%s.%d.checkpoint.json", base, networkID)
}
