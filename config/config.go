// Package config provides configuration for the seshat schema pipeline.
//
// Library callers configure behavior through programmatic option structs;
// external configuration files and environment variables are only read by the
// CLI, through Load.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// DescribeOptions controls what a schema describer includes in its snapshot.
type DescribeOptions struct {
	// IgnoredTables is a list of table names excluded from introspection.
	// These tables never appear in the snapshot and are therefore invisible
	// to diffing, as if they did not exist. Migration bookkeeping tables are
	// the typical entries.
	IgnoredTables []string

	// Schema is the namespace to describe on dialects that have one.
	// Empty selects the dialect's default ("public" on PostgreSQL, the
	// connected database on MySQL). Ignored by SQLite.
	Schema string
}

// DefaultDescribeOptions returns describe options with the migration
// bookkeeping table excluded.
func DefaultDescribeOptions() *DescribeOptions {
	return &DescribeOptions{
		IgnoredTables: []string{"schema_migrations"},
	}
}

// WithIgnoredTables returns a new DescribeOptions with the specified ignored
// tables. This completely replaces the default ignored table list.
func WithIgnoredTables(tables ...string) *DescribeOptions {
	return &DescribeOptions{
		IgnoredTables: tables,
	}
}

// IsTableIgnored checks if the given table should be excluded from the
// snapshot based on the current configuration.
func (o *DescribeOptions) IsTableIgnored(name string) bool {
	for _, ignored := range o.IgnoredTables {
		if ignored == name {
			return true
		}
	}
	return false
}

// ApplyOptions controls how the step applier executes statements.
type ApplyOptions struct {
	// DryRun renders every statement without executing any of them.
	DryRun bool

	// StatementSink receives each statement that would have run when DryRun
	// is set. Nil discards them.
	StatementSink func(statement string)
}

// DefaultApplyOptions returns apply options that execute statements normally.
func DefaultApplyOptions() *ApplyOptions {
	return &ApplyOptions{}
}

// Config is the CLI-facing configuration loaded from a config file and
// environment variables.
type Config struct {
	// DatabaseURL is the connection URL, scheme selects the dialect.
	DatabaseURL string `mapstructure:"database_url"`
	// Dialect overrides the dialect detected from the URL scheme.
	Dialect string `mapstructure:"dialect"`
	// Schema is the namespace to operate on, where the dialect has one.
	Schema string `mapstructure:"schema"`
}

// Load reads the CLI configuration from seshat.yaml in the working directory
// (when present) and from SESHAT_-prefixed environment variables. Environment
// variables take precedence over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("seshat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SESHAT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
