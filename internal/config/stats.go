package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// StatsConfig holds configuration for the stats command.
type StatsConfig struct {
	Common
	FromTime        time.Time
	ToTime          time.Time
	FromBlock       uint64
	ToBlock         uint64
	UseBlocks       bool
	CollectFailures bool
	Out             string
}

// LoadStats merges config file, environment variables, and flags into StatsConfig.
// Either both block bounds or both time bounds must be set.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return StatsConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return StatsConfig{}, err
	}

	cfg := StatsConfig{
		Common:          common,
		FromBlock:       v.GetUint64("from-block"),
		ToBlock:         v.GetUint64("to-block"),
		CollectFailures: v.GetBool("collect-failures"),
		Out:             v.GetString("out"),
	}

	hasBlocks := v.IsSet("from-block") || v.IsSet("to-block")
	hasTimes := v.GetString("from-time") != "" || v.GetString("to-time") != ""
	switch {
	case hasBlocks && hasTimes:
		return StatsConfig{}, fmt.Errorf("use either block or time bounds, not both")
	case hasBlocks:
		if !v.IsSet("to-block") {
			return StatsConfig{}, fmt.Errorf("to-block is required with from-block")
		}
		cfg.UseBlocks = true
	case hasTimes:
		if cfg.FromTime, err = ParseTime(v.GetString("from-time")); err != nil {
			return StatsConfig{}, fmt.Errorf("parse from-time: %w", err)
		}
		if cfg.ToTime, err = ParseTime(v.GetString("to-time")); err != nil {
			return StatsConfig{}, fmt.Errorf("parse to-time: %w", err)
		}
		if cfg.FromTime.IsZero() || cfg.ToTime.IsZero() {
			return StatsConfig{}, fmt.Errorf("both from-time and to-time are required")
		}
	default:
		return StatsConfig{}, fmt.Errorf("a block or time range is required")
	}
	return cfg, nil
}
