package config_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/config"
)

func TestDescribeOptions(t *testing.T) {
	c := qt.New(t)

	opts := config.DefaultDescribeOptions()
	c.Assert(opts.IgnoredTables, qt.DeepEquals, []string{"schema_migrations"})
	c.Assert(opts.IsTableIgnored("schema_migrations"), qt.IsTrue)
	c.Assert(opts.IsTableIgnored("users"), qt.IsFalse)

	// WithIgnoredTables replaces the default list instead of extending it.
	opts = config.WithIgnoredTables("audit_log", "flyway_schema_history")
	c.Assert(opts.IsTableIgnored("schema_migrations"), qt.IsFalse)
	c.Assert(opts.IsTableIgnored("audit_log"), qt.IsTrue)
	c.Assert(opts.IsTableIgnored("flyway_schema_history"), qt.IsTrue)
}

func TestLoad_FromFile(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	content := "database_url: postgres://localhost/app\ndialect: postgres\nschema: billing\n"
	err := os.WriteFile(filepath.Join(dir, "seshat.yaml"), []byte(content), 0o644)
	c.Assert(err, qt.IsNil)
	t.Chdir(dir)

	cfg, err := config.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.DatabaseURL, qt.Equals, "postgres://localhost/app")
	c.Assert(cfg.Dialect, qt.Equals, "postgres")
	c.Assert(cfg.Schema, qt.Equals, "billing")
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	c := qt.New(t)

	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.DatabaseURL, qt.Equals, "")
}
