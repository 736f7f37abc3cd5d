// Package sqlutil provides small SQL text helpers shared by the renderer and
// the applier. The statement splitter here is the single source of truth for
// statement boundaries, so a script split at application time groups exactly
// the statements that were rendered into it.
package sqlutil

import "strings"

// SplitStatements splits a SQL text into individual statements on semicolons,
// honoring single-quoted strings, double-quoted and backtick-quoted
// identifiers, line comments and block comments. Statement text is trimmed;
// empty statements are dropped. The terminating semicolon is not included.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	i := 0
	for i < len(script) {
		c := script[i]

		switch {
		case c == ';':
			flush()
			i++
		case c == '\'' || c == '"' || c == '`':
			end := scanQuoted(script, i, c)
			current.WriteString(script[i:end])
			i = end
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := scanLineComment(script, i)
			current.WriteString(script[i:end])
			i = end
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := scanBlockComment(script, i)
			current.WriteString(script[i:end])
			i = end
		default:
			current.WriteByte(c)
			i++
		}
	}
	flush()

	return statements
}

// scanQuoted returns the position just past the closing quote. A doubled
// quote character inside the literal is the SQL escape for the quote itself.
// An unterminated literal runs to the end of the input.
func scanQuoted(s string, start int, quote byte) int {
	i := start + 1
	for i < len(s) {
		if s[i] != quote {
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

func scanLineComment(s string, start int) int {
	i := start
	for i < len(s) && s[i] != '\n' {
		i++
	}
	return i
}

func scanBlockComment(s string, start int) int {
	i := start + 2
	for i+1 < len(s) {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(s)
}
