package shell

import (
	"strconv"
	"strings"
)

// Result is an in-memory ResultSet. It is what SQLShell buffers query results
// into, and what tests and bridged hosts construct by hand.
type Result struct {
	columns []string
	values  [][]any
}

// NewResult creates a buffered result set from raw row values.
func NewResult(columns []string, values [][]any) *Result {
	return &Result{columns: columns, values: values}
}

// Columns returns the column names in query order.
func (r *Result) Columns() []string {
	return r.columns
}

func (r *Result) Len() int {
	return len(r.values)
}

func (r *Result) RowAt(idx int) (Row, bool) {
	if idx < 0 || idx >= len(r.values) {
		return nil, false
	}
	return resultRow(r.values[idx]), true
}

// resultRow adapts a raw value slice to the Row accessors. Drivers disagree
// on the Go types they produce for the same SQL type, so each accessor
// coerces the common representations.
type resultRow []any

func (r resultRow) BoolAt(idx int) (bool, bool) {
	if idx < 0 || idx >= len(r) || r[idx] == nil {
		return false, false
	}
	switch v := r[idx].(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	case int:
		return v != 0, true
	case []byte:
		return parseBoolValue(string(v))
	case string:
		return parseBoolValue(v)
	default:
		return false, false
	}
}

func (r resultRow) Int64At(idx int) (int64, bool) {
	if idx < 0 || idx >= len(r) || r[idx] == nil {
		return 0, false
	}
	switch v := r[idx].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (r resultRow) StringAt(idx int) (string, bool) {
	if idx < 0 || idx >= len(r) || r[idx] == nil {
		return "", false
	}
	switch v := r[idx].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

func parseBoolValue(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "t", "true", "yes":
		return true, true
	case "0", "f", "false", "no":
		return false, true
	default:
		return false, false
	}
}
