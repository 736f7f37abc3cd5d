// Package applier renders migration steps and executes them over a
// connection shell. It supports single-step application for resumable
// migrations, full-script rendering and replay, and structured pretty
// rendering for presentation consumers.
package applier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stokaro/seshat/config"
	"github.com/stokaro/seshat/dbschema/shell"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/steps"
)

// StepError reports a statement failure during step application. The step
// index and statement text are carried so the caller can decide between
// retry, rollback or surfacing to the end user.
type StepError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("failed to apply step %d at statement %q: %v", e.Index, e.Statement, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Applier executes migration steps against a connection shell. Steps apply
// one at a time and statements within a step one at a time; DDL correctness
// depends on strict ordering.
type Applier struct {
	conn    shell.Shell
	dialect render.Dialect
	opts    *config.ApplyOptions
	logger  *slog.Logger
}

// NewApplier creates an applier over the given shell and dialect renderer.
func NewApplier(conn shell.Shell, dialect render.Dialect) *Applier {
	return &Applier{
		conn:    conn,
		dialect: dialect,
		opts:    config.DefaultApplyOptions(),
		logger:  slog.Default(),
	}
}

// WithOptions sets the apply options for the applier.
func (a *Applier) WithOptions(opts *config.ApplyOptions) *Applier {
	tmp := *a
	tmp.opts = opts
	return &tmp
}

// WithLogger sets the logger for the applier.
func (a *Applier) WithLogger(l *slog.Logger) *Applier {
	tmp := *a
	tmp.logger = l
	return &tmp
}

// execute runs one statement, or routes it to the dry-run sink.
func (a *Applier) execute(ctx context.Context, statement string) error {
	if a.opts.DryRun {
		if a.opts.StatementSink != nil {
			a.opts.StatementSink(statement)
		}
		return nil
	}
	return a.conn.RawCmd(ctx, statement)
}

// ApplyStep applies the step at the given position. It returns false without
// touching the connection when the position is out of range. A statement
// failure aborts the remaining statements of the step and propagates with
// the step index and statement text; no partial-statement rollback is
// attempted inside a step.
func (a *Applier) ApplyStep(ctx context.Context, m *steps.Migration, index int) (bool, error) {
	if index < 0 || index >= len(m.Steps) {
		return false, nil
	}

	step := m.Steps[index]
	statements, err := render.RenderStep(a.dialect, m, step)
	if err != nil {
		return false, fmt.Errorf("failed to render step %d (%s): %w", index, step.Description(), err)
	}

	a.logger.Info("Applying step", "index", index, "step", step.Description(), "statements", len(statements))

	for _, statement := range statements {
		a.logger.Debug("Executing statement", "sql", statement)
		if err := a.execute(ctx, statement); err != nil {
			return false, &StepError{Index: index, Statement: statement, Err: err}
		}
	}

	return true, nil
}
