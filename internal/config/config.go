// Package config provides Viper-based configuration loading for the battle
// server and its tools.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ASCENSION_DATABASE_HOST.
const EnvPrefix = "ASCENSION"

// DatabaseConfig holds PostgreSQL connection settings for the match ledger.
type DatabaseConfig struct {
	// Enabled turns match persistence on. When false no connection is made.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleServerConfig holds the gRPC listener settings.
type BattleServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// ShutdownGrace bounds GracefulStop before the server is stopped hard.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	// CheckmateUnlocked gates the Checkmate RPC.
	CheckmateUnlocked bool `mapstructure:"checkmate_unlocked"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (b BattleServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.GRPCHost, b.GRPCPort)
}

// BattleConfig tunes the engine.
type BattleConfig struct {
	// DefaultSeed is used when a request carries no seed.
	DefaultSeed string `mapstructure:"default_seed"`
	// RosterPath optionally replaces the embedded roster with a YAML file.
	RosterPath string `mapstructure:"roster_path"`
	// BatchConcurrency bounds SimulateBatch workers.
	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

// ModesConfig holds wave mode limits.
type ModesConfig struct {
	BossRushWaves int `mapstructure:"boss_rush_waves"`
	InfiniteWaves int `mapstructure:"infinite_waves"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Database     DatabaseConfig     `mapstructure:"database"`
	BattleServer BattleServerConfig `mapstructure:"battleserver"`
	Battle       BattleConfig       `mapstructure:"battle"`
	Modes        ModesConfig        `mapstructure:"modes"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateBattleServer(c.BattleServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateModes(c.Modes); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattleServer(b BattleServerConfig) error {
	var errs []string
	if b.GRPCHost == "" {
		errs = append(errs, "battleserver.grpc_host must not be empty")
	}
	if b.GRPCPort < 1 || b.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("battleserver.grpc_port must be 1-65535, got %d", b.GRPCPort))
	}
	if b.ShutdownGrace < 0 {
		errs = append(errs, "battleserver.shutdown_grace must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.DefaultSeed == "" {
		errs = append(errs, "battle.default_seed must not be empty")
	}
	if b.BatchConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("battle.batch_concurrency must be >= 1, got %d", b.BatchConcurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateModes(m ModesConfig) error {
	var errs []string
	if m.BossRushWaves < 1 {
		errs = append(errs, fmt.Sprintf("modes.boss_rush_waves must be >= 1, got %d", m.BossRushWaves))
	}
	if m.InfiniteWaves < 1 || m.InfiniteWaves > 100 {
		errs = append(errs, fmt.Sprintf("modes.infinite_waves must be 1-100, got %d", m.InfiniteWaves))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance carrying the defaults and ASCENSION_
// environment overrides.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ascension")
	v.SetDefault("database.password", "ascension")
	v.SetDefault("database.name", "ascension")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("battleserver.grpc_host", "127.0.0.1")
	v.SetDefault("battleserver.grpc_port", 50061)
	v.SetDefault("battleserver.shutdown_grace", "10s")
	v.SetDefault("battleserver.checkmate_unlocked", false)

	v.SetDefault("battle.default_seed", "ascension-online")
	v.SetDefault("battle.roster_path", "")
	v.SetDefault("battle.batch_concurrency", 4)

	v.SetDefault("modes.boss_rush_waves", 5)
	v.SetDefault("modes.infinite_waves", 10)
}
