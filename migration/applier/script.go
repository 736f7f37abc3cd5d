package applier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/stokaro/seshat/core/sqlutil"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/steps"
)

// emptyMigrationComment is rendered when no step produces any statement.
const emptyMigrationComment = "-- This is an empty migration."

// stepMarkerRe matches the marker line written before each step's
// statements. ApplyScript re-splits a script by this pattern, so the marker
// format is a stable contract of the script output.
var stepMarkerRe = regexp.MustCompile(`(?m)^-- \[Step: (.*)\]$`)

var titleCaser = cases.Title(language.English)

// DestructiveChangeDiagnostics carries the advisory diagnostics collected by
// an upstream differ. They are embedded into rendered output and never abort
// generation.
type DestructiveChangeDiagnostics struct {
	// Warnings name steps that may lose data.
	Warnings []string
	// UnexecutableMigrations name steps that cannot run against the current
	// data, e.g. adding a required column to a non-empty table.
	UnexecutableMigrations []string
}

// HasDiagnostics reports whether any advisory was collected.
func (d *DestructiveChangeDiagnostics) HasDiagnostics() bool {
	return d != nil && (len(d.Warnings) > 0 || len(d.UnexecutableMigrations) > 0)
}

// PrettyStep is one non-empty step with its concatenated SQL, for
// presentation and tooling consumers.
type PrettyStep struct {
	Step        steps.Step
	Description string
	Raw         string
}

// RenderScript renders the full migration as a script. Diagnostics, when
// present, come first as a documentation comment block; then each non-empty
// step contributes a marker line naming its description followed by its
// semicolon-terminated statements. Re-splitting the script by its markers
// recovers the same statement grouping as the step list.
func (a *Applier) RenderScript(m *steps.Migration, diags *DestructiveChangeDiagnostics) (string, error) {
	var groups []string
	for index, step := range m.Steps {
		statements, err := render.RenderStep(a.dialect, m, step)
		if err != nil {
			return "", fmt.Errorf("failed to render step %d (%s): %w", index, step.Description(), err)
		}
		if len(statements) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "-- [Step: %s]\n", step.Description())
		for _, statement := range statements {
			b.WriteString(statement)
			b.WriteString(";\n")
		}
		groups = append(groups, b.String())
	}

	if len(groups) == 0 {
		return emptyMigrationComment + "\n", nil
	}

	var script strings.Builder
	script.WriteString(renderDiagnostics(diags))
	script.WriteString(strings.Join(groups, "\n"))
	return script.String(), nil
}

// renderDiagnostics renders the leading warning comment block, or nothing
// when there is nothing to warn about.
func renderDiagnostics(diags *DestructiveChangeDiagnostics) string {
	if !diags.HasDiagnostics() {
		return ""
	}

	var b strings.Builder
	b.WriteString("/*\n  Warnings:\n\n")
	for _, unexecutable := range diags.UnexecutableMigrations {
		fmt.Fprintf(&b, "  - %s\n", unexecutable)
	}
	for _, warning := range diags.Warnings {
		fmt.Fprintf(&b, "  - %s\n", warning)
	}
	b.WriteString("\n*/\n")
	return b.String()
}

// RenderStepsPretty renders each non-empty step as a structured description
// paired with its SQL text.
func (a *Applier) RenderStepsPretty(m *steps.Migration) ([]PrettyStep, error) {
	var pretty []PrettyStep
	for index, step := range m.Steps {
		statements, err := render.RenderStep(a.dialect, m, step)
		if err != nil {
			return nil, fmt.Errorf("failed to render step %d (%s): %w", index, step.Description(), err)
		}
		if len(statements) == 0 {
			continue
		}

		pretty = append(pretty, PrettyStep{
			Step:        step,
			Description: prettyDescription(step.Description()),
			Raw:         strings.Join(statements, ";\n") + ";",
		})
	}
	return pretty, nil
}

// prettyDescription turns a variant name like "AddForeignKey" into
// "Add Foreign Key".
func prettyDescription(description string) string {
	var words []string
	start := 0
	for i := 1; i < len(description); i++ {
		if description[i] >= 'A' && description[i] <= 'Z' {
			words = append(words, description[start:i])
			start = i
		}
	}
	words = append(words, description[start:])

	for i, word := range words {
		words[i] = titleCaser.String(strings.ToLower(word))
	}
	return strings.Join(words, " ")
}

// ApplyScript splits a previously rendered script back into statement groups
// by its step markers and executes each group's statements in order. The
// segment before the first marker is documentation and is discarded. Any
// failure aborts immediately and propagates.
func (a *Applier) ApplyScript(ctx context.Context, script string) error {
	markers := stepMarkerRe.FindAllStringSubmatchIndex(script, -1)
	if len(markers) == 0 {
		return nil
	}

	for i, marker := range markers {
		description := script[marker[2]:marker[3]]

		segmentStart := marker[1]
		segmentEnd := len(script)
		if i+1 < len(markers) {
			segmentEnd = markers[i+1][0]
		}

		a.logger.Info("Applying script step", "index", i, "step", description)

		for _, statement := range sqlutil.SplitStatements(script[segmentStart:segmentEnd]) {
			a.logger.Debug("Executing statement", "sql", statement)
			if err := a.execute(ctx, statement); err != nil {
				return &StepError{Index: i, Statement: statement, Err: err}
			}
		}
	}

	return nil
}
