// Package shell defines the minimal capability a schema describer and a step
// applier need from a database connection: issue a parameterized read query,
// or issue a raw (possibly multi-statement) command.
//
// Row access is deliberately narrow. A Row exposes a typed accessor per cell
// position, each returning an ok flag instead of an error or a panic, so NULL
// values and out-of-range positions read the same way regardless of driver.
package shell

import (
	"context"
	"fmt"
)

// DatabaseError is a connection or I/O failure surfaced by a Shell
// implementation. Code carries the vendor error code when the driver
// exposes one.
type DatabaseError struct {
	Message string
	Code    string
}

func (e *DatabaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("database error %s: %s", e.Code, e.Message)
	}
	return "database error: " + e.Message
}

// Row is a positional, typed view over one result row.
type Row interface {
	// BoolAt returns the boolean value at the given column position.
	// ok is false for NULL values and out-of-range positions.
	BoolAt(idx int) (value bool, ok bool)
	// Int64At returns the integer value at the given column position.
	Int64At(idx int) (value int64, ok bool)
	// StringAt returns the string value at the given column position.
	StringAt(idx int) (value string, ok bool)
}

// ResultSet is a fully buffered query result.
type ResultSet interface {
	Len() int
	RowAt(idx int) (Row, bool)
}

// Shell is the connection capability consumed by describers and appliers.
// Calls on the same shell must be issued strictly sequentially: each call
// completes before the next one starts.
type Shell interface {
	// Query runs a parameterized read query and buffers the full result.
	Query(ctx context.Context, query string, params []string) (ResultSet, error)
	// RawCmd runs a command for its side effects. The command may contain
	// multiple statements where the driver supports that.
	RawCmd(ctx context.Context, query string) error
}

// Rows iterates a result set row by row.
func Rows(rs ResultSet) []Row {
	rows := make([]Row, 0, rs.Len())
	for i := 0; ; i++ {
		row, ok := rs.RowAt(i)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows
}
