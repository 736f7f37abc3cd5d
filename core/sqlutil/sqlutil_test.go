package sqlutil_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/core/sqlutil"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "two simple statements",
			input:    "CREATE TABLE a (id INTEGER);\nDROP TABLE b;\n",
			expected: []string{"CREATE TABLE a (id INTEGER)", "DROP TABLE b"},
		},
		{
			name:     "semicolon inside string literal",
			input:    "INSERT INTO t VALUES ('a;b');\nDROP TABLE t;",
			expected: []string{"INSERT INTO t VALUES ('a;b')", "DROP TABLE t"},
		},
		{
			name:     "escaped quote inside string literal",
			input:    "INSERT INTO t VALUES ('it''s; fine');",
			expected: []string{"INSERT INTO t VALUES ('it''s; fine')"},
		},
		{
			name:     "semicolon inside quoted identifier",
			input:    `CREATE TABLE "weird;name" (id INTEGER);`,
			expected: []string{`CREATE TABLE "weird;name" (id INTEGER)`},
		},
		{
			name:     "semicolon inside backtick identifier",
			input:    "CREATE TABLE `weird;name` (id INTEGER);",
			expected: []string{"CREATE TABLE `weird;name` (id INTEGER)"},
		},
		{
			name:     "semicolon inside line comment",
			input:    "CREATE TABLE a (\n    id INTEGER -- not a boundary ;\n);",
			expected: []string{"CREATE TABLE a (\n    id INTEGER -- not a boundary ;\n)"},
		},
		{
			name:     "semicolon inside block comment",
			input:    "/* leading; comment */ DROP TABLE a;",
			expected: []string{"/* leading; comment */ DROP TABLE a"},
		},
		{
			name:     "empty statements dropped",
			input:    ";;\n  ;\nDROP TABLE a;",
			expected: []string{"DROP TABLE a"},
		},
		{
			name:     "trailing statement without semicolon",
			input:    "DROP TABLE a;\nDROP TABLE b",
			expected: []string{"DROP TABLE a", "DROP TABLE b"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "unterminated string runs to end",
			input:    "INSERT INTO t VALUES ('oops;",
			expected: []string{"INSERT INTO t VALUES ('oops;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(sqlutil.SplitStatements(tt.input), qt.DeepEquals, tt.expected)
		})
	}
}
