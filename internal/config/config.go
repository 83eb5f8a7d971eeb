package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Common holds the ledger, retry, and search settings shared by every command.
type Common struct {
	RPCURL           string
	NetworkID        uint64
	Timeout          time.Duration
	Retries          int
	RetryBackoff     time.Duration
	RetryMaxBackoff  time.Duration
	Concurrency      int
	BlockPeriod      time.Duration
	MaxSearchSteps   int
	RPS              float64
	TokenAddress     string
	ConverterAddress string
	TokenDecimals    uint8
	DetectDecimals   bool
	LogLevel         string
	MetricsAddr      string
}

// Validate checks the settings every command needs.
func (c Common) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than zero")
	}
	if c.BlockPeriod <= 0 {
		return fmt.Errorf("block period must be greater than zero")
	}
	return nil
}

// newViper merges defaults, environment variables (METRICS_ prefix),
// an optional config file, and flags.
func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("METRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network-id", uint64(1))
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("retries", 15)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("retry-max-backoff", 10*time.Second)
	v.SetDefault("concurrency", 10)
	v.SetDefault("block-period", 15*time.Second)
	v.SetDefault("max-search-steps", 10000)
	v.SetDefault("rps", 0.0)
	v.SetDefault("token-decimals", 18)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) (Common, error) {
	decimals := v.GetInt("token-decimals")
	if decimals < 0 || decimals > 77 {
		return Common{}, fmt.Errorf("token decimals out of range: %d", decimals)
	}
	return Common{
		RPCURL:           v.GetString("rpc"),
		NetworkID:        v.GetUint64("network-id"),
		Timeout:          v.GetDuration("timeout"),
		Retries:          v.GetInt("retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		RetryMaxBackoff:  v.GetDuration("retry-max-backoff"),
		Concurrency:      v.GetInt("concurrency"),
		BlockPeriod:      v.GetDuration("block-period"),
		MaxSearchSteps:   v.GetInt("max-search-steps"),
		RPS:              v.GetFloat64("rps"),
		TokenAddress:     v.GetString("token-address"),
		ConverterAddress: v.GetString("converter-address"),
		TokenDecimals:    uint8(decimals),
		DetectDecimals:   v.GetBool("detect-decimals"),
		LogLevel:         v.GetString("log-level"),
		MetricsAddr:      v.GetString("metrics-addr"),
	}, nil
}

// FindBlockConfig holds configuration for the find-block command.
type FindBlockConfig struct {
	Common
	At time.Time
}

// LoadFindBlock merges config file, environment variables, and flags into FindBlockConfig.
func LoadFindBlock(cfgFile string, flags *pflag.FlagSet) (FindBlockConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return FindBlockConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return FindBlockConfig{}, err
	}

	at, err := ParseTime(v.GetString("at"))
	if err != nil {
		return FindBlockConfig{}, fmt.Errorf("parse at: %w", err)
	}
	if at.IsZero() {
		return FindBlockConfig{}, fmt.Errorf("at is required")
	}
	return FindBlockConfig{Common: common, At: at}, nil
}
