// Package config loads node configuration and the genesis allocation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/tolelom/tolstake/core"
)

// EnvPrefix is prepended to environment overrides, e.g. TOLSTAKE_RPC_ADDR.
const EnvPrefix = "TOLSTAKE"

// GenesisConfig describes the native balances present before the first
// operation.
type GenesisConfig struct {
	Alloc map[string]uint64 `json:"alloc" mapstructure:"alloc"` // pubkey hex → balance
}

// RedisConfig enables forwarding ledger notifications to a Redis channel.
// An empty Addr disables it.
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	Channel  string `json:"channel" mapstructure:"channel"`
}

// Config holds all node configuration.
type Config struct {
	ChainID      string           `json:"chain_id" mapstructure:"chain_id"`
	DataDir      string           `json:"data_dir" mapstructure:"data_dir"`
	RPCAddr      string           `json:"rpc_addr" mapstructure:"rpc_addr"`
	RPCAuthToken string           `json:"rpc_auth_token" mapstructure:"rpc_auth_token"` // empty → no auth
	CacheSize    int              `json:"cache_size" mapstructure:"cache_size"`
	Fees         core.FeeSchedule `json:"fees" mapstructure:"fees"` // used by `tolstake init`
	Redis        RedisConfig      `json:"redis" mapstructure:"redis"`
	Genesis      GenesisConfig    `json:"genesis" mapstructure:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		ChainID:   "tolstake-dev",
		DataDir:   "./data",
		RPCAddr:   ":8545",
		CacheSize: 1024,
		Fees:      core.DefaultFeeSchedule(),
		Redis:     RedisConfig{Channel: "tolstake:events"},
		Genesis:   GenesisConfig{Alloc: map[string]uint64{}},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("chain_id", d.ChainID)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("rpc_addr", d.RPCAddr)
	v.SetDefault("rpc_auth_token", "")
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("fees.entry_fee", d.Fees.EntryFee)
	v.SetDefault("fees.platform_fee", d.Fees.PlatformFee)
	v.SetDefault("fees.player_stake", d.Fees.PlayerStake)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", d.Redis.Channel)
}

// Load reads configuration in priority order: defaults, then the file at
// path (json, yaml or toml by extension; skipped if path is empty), then
// TOLSTAKE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Genesis.Alloc == nil {
		cfg.Genesis.Alloc = map[string]uint64{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and the fee invariant.
func (c *Config) Validate() error {
	if c.ChainID == "" {
		return errors.New("chain_id is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.RPCAddr == "" {
		return errors.New("rpc_addr is required")
	}
	if err := c.Fees.Validate(); err != nil {
		return fmt.Errorf("fees: %w", err)
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
