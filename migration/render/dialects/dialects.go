// Package dialects selects the renderer matching a dialect name.
package dialects

import (
	"fmt"

	"github.com/stokaro/seshat/core/platform"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/render/dialects/mysql"
	"github.com/stokaro/seshat/migration/render/dialects/postgres"
	"github.com/stokaro/seshat/migration/render/dialects/sqlite"
)

// New returns the renderer for the given dialect name. Driver aliases like
// "pgx" and "sqlite3" are accepted.
func New(dialect string) (render.Dialect, error) {
	switch platform.NormalizeDialect(dialect) {
	case platform.Postgres:
		return postgres.New(), nil
	case platform.MySQL:
		return mysql.New(), nil
	case platform.MariaDB:
		return mysql.NewMariaDB(), nil
	case platform.SQLite:
		return sqlite.New(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
}
