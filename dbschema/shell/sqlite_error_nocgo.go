//go:build !cgo

package shell

// wrapSQLiteError is a no-op without cgo: the go-sqlite3 driver is a
// non-functional stub in that configuration and never produces a
// sqlite3.Error.
func wrapSQLiteError(_ error) (*DatabaseError, bool) {
	return nil, false
}
