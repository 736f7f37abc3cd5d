//go:build cgo

package shell

import (
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"
)

// wrapSQLiteError extracts the message and extended code from a
// go-sqlite3 driver error. The sqlite3.Error type is only defined when
// the driver is compiled with cgo.
func wrapSQLiteError(err error) (*DatabaseError, bool) {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &DatabaseError{Message: liteErr.Error(), Code: strconv.Itoa(int(liteErr.ExtendedCode))}, true
	}
	return nil, false
}
