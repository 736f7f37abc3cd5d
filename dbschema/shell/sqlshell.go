package shell

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLShell implements Shell over a pooled database/sql connection.
type SQLShell struct {
	db *sql.DB
}

// NewSQLShell wraps an open connection pool.
func NewSQLShell(db *sql.DB) *SQLShell {
	return &SQLShell{db: db}
}

// DB returns the underlying connection pool.
func (s *SQLShell) DB() *sql.DB {
	return s.db
}

func (s *SQLShell) Query(ctx context.Context, query string, params []string) (ResultSet, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrapDriverError(err)
	}

	var values [][]any
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapDriverError(err)
		}
		values = append(values, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(err)
	}

	return NewResult(columns, values), nil
}

func (s *SQLShell) RawCmd(ctx context.Context, query string) error {
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return wrapDriverError(err)
	}
	return nil
}

// wrapDriverError converts a driver error into a DatabaseError, extracting
// the vendor error code where the driver exposes one.
func wrapDriverError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DatabaseError{Message: pgErr.Message, Code: pgErr.Code}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DatabaseError{Message: pqErr.Message, Code: string(pqErr.Code)}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &DatabaseError{Message: myErr.Message, Code: strconv.Itoa(int(myErr.Number))}
	}

	if dbErr, ok := wrapSQLiteError(err); ok {
		return dbErr
	}

	return &DatabaseError{Message: err.Error()}
}
