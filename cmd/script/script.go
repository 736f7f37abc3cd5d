// Package script implements the CLI command that renders a migration file
// into a SQL script, and optionally applies it.
package script

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/seshat/config"
	"github.com/stokaro/seshat/core/platform"
	"github.com/stokaro/seshat/dbschema"
	"github.com/stokaro/seshat/migration/applier"
	"github.com/stokaro/seshat/migration/render/dialects"
	"github.com/stokaro/seshat/migration/steps"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Render a migration file into a SQL script",
	Long: `Read a migration JSON file (schema pair plus step list), render it into
a SQL script for the given dialect and print it. With --apply and --url the
script is executed against the database instead.

Examples:
  seshat script --file migration.json --dialect postgres
  seshat script --file migration.json --apply --url sqlite://./app.db`,
	RunE: scriptCommand,
}

const (
	fileFlag    = "file"
	dialectFlag = "dialect"
	applyFlag   = "apply"
	urlFlag     = "url"
)

var scriptFlags = map[string]cobraflags.Flag{
	fileFlag: &cobraflags.StringFlag{
		Name:  fileFlag,
		Value: "",
		Usage: "Path to the migration JSON file (required)",
	},
	dialectFlag: &cobraflags.StringFlag{
		Name:  dialectFlag,
		Value: "",
		Usage: "Target dialect (postgres, mysql, mariadb, sqlite); defaults to the config file's dialect, else postgres",
	},
	applyFlag: &cobraflags.BoolFlag{
		Name:  applyFlag,
		Value: false,
		Usage: "Apply the rendered script instead of printing it",
	},
	urlFlag: &cobraflags.StringFlag{
		Name:  urlFlag,
		Value: "",
		Usage: "Database URL (required with --apply)",
	},
}

// NewScriptCommand creates the script command.
func NewScriptCommand() *cobra.Command {
	cobraflags.RegisterMap(scriptCmd, scriptFlags)
	return scriptCmd
}

func scriptCommand(cmd *cobra.Command, _ []string) error {
	file := scriptFlags[fileFlag].GetString()
	if file == "" {
		return fmt.Errorf("migration file is required (use --file flag)")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	var m steps.Migration
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to decode migration file: %w", err)
	}

	if scriptFlags[applyFlag].GetBool() {
		return applyScript(cmd, &m)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dialect, err := dialects.New(resolveDialectName(scriptFlags[dialectFlag].GetString(), cfg.Dialect))
	if err != nil {
		return err
	}

	script, err := applier.NewApplier(nil, dialect).RenderScript(&m, nil)
	if err != nil {
		return fmt.Errorf("failed to render script: %w", err)
	}

	fmt.Print(script)
	return nil
}

// resolveDialectName picks the render dialect: an explicit flag wins, then
// the config file, then postgres.
func resolveDialectName(flag, configured string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	return platform.Postgres
}

func applyScript(cmd *cobra.Command, m *steps.Migration) error {
	dbURL := scriptFlags[urlFlag].GetString()
	if dbURL == "" {
		return fmt.Errorf("database URL is required with --apply (use --url flag)")
	}

	conn, err := dbschema.ConnectToDatabase(dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	dialect, err := dialects.New(conn.Info().Dialect)
	if err != nil {
		return err
	}

	a := applier.NewApplier(conn.Shell(), dialect)
	script, err := a.RenderScript(m, nil)
	if err != nil {
		return fmt.Errorf("failed to render script: %w", err)
	}

	if err := a.ApplyScript(cmd.Context(), script); err != nil {
		return fmt.Errorf("failed to apply script: %w", err)
	}

	fmt.Printf("Applied %d steps\n", len(m.Steps))
	return nil
}
