// Package sqlite reads a live SQLite database into a schema snapshot.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/stokaro/seshat/config"
	"github.com/stokaro/seshat/dbschema/shell"
	"github.com/stokaro/seshat/dbschema/types"
)

// System tables per https://www.sqlite.org/fileformat2.html.
var systemTables = map[string]struct{}{
	"sqlite_sequence": {},
	"sqlite_stat1":    {},
	"sqlite_stat2":    {},
	"sqlite_stat3":    {},
	"sqlite_stat4":    {},
}

// Describer reads schema snapshots from SQLite databases.
type Describer struct {
	conn   shell.Shell
	opts   *config.DescribeOptions
	logger *slog.Logger
}

// NewDescriber creates a describer over the given connection shell.
func NewDescriber(conn shell.Shell) *Describer {
	return &Describer{
		conn:   conn,
		opts:   config.DefaultDescribeOptions(),
		logger: slog.Default(),
	}
}

// WithOptions sets the describe options for the describer.
func (d *Describer) WithOptions(opts *config.DescribeOptions) *Describer {
	tmp := *d
	tmp.opts = opts
	return &tmp
}

// WithLogger sets the logger for the describer.
func (d *Describer) WithLogger(l *slog.Logger) *Describer {
	tmp := *d
	tmp.logger = l
	return &tmp
}

// Describe reads the complete database schema into an immutable snapshot.
func (d *Describer) Describe(ctx context.Context) (*types.Schema, error) {
	tableNames, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]types.Table, 0, len(tableNames))
	for _, name := range tableNames {
		if _, ok := systemTables[name]; ok {
			continue
		}
		if d.opts.IsTableIgnored(name) {
			continue
		}
		table, err := d.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	// Referential integrity is optional on SQLite, so foreign keys not
	// pointing to an existing table are removed ex post.
	types.PurgeDanglingForeignKeys(tables)

	// SQLite allows foreign key definitions without referenced columns; the
	// referenced table's primary key is assumed. Resolve those now that all
	// tables are known.
	if err := resolveShorthandForeignKeys(tables); err != nil {
		return nil, err
	}

	views, err := d.views(ctx)
	if err != nil {
		return nil, err
	}

	// SQLite has no enums, sequences or procedures.
	return &types.Schema{
		Tables: tables,
		Views:  views,
	}, nil
}

// ListDatabases enumerates the attached database names.
func (d *Describer) ListDatabases(ctx context.Context) ([]string, error) {
	rs, err := d.conn.Query(ctx, "PRAGMA database_list;", nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "list databases", Err: err}
	}

	var names []string
	for _, row := range shell.Rows(rs) {
		path, ok := row.StringAt(2)
		if !ok {
			name, nameOK := row.StringAt(1)
			if !nameOK {
				return nil, &types.DescribeError{Op: "list databases", Err: types.ErrMalformedCatalog}
			}
			names = append(names, name)
			continue
		}
		parts := strings.Split(path, "/")
		names = append(names, parts[len(parts)-1])
	}

	d.logger.Debug("found database names", "names", names)
	return names, nil
}

// Metadata returns the table count and on-disk size of the database.
func (d *Describer) Metadata(ctx context.Context) (*types.Metadata, error) {
	tableNames, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	rs, err := d.conn.Query(ctx, "SELECT page_count * page_size AS size FROM pragma_page_count(), pragma_page_size();", nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "read database size", Err: err}
	}
	row, ok := rs.RowAt(0)
	if !ok {
		return nil, &types.DescribeError{Op: "read database size", Err: types.ErrMalformedCatalog}
	}
	size, ok := row.Int64At(0)
	if !ok {
		return nil, &types.DescribeError{Op: "read database size", Err: types.ErrMalformedCatalog}
	}

	return &types.Metadata{TableCount: len(tableNames), SizeInBytes: size}, nil
}

func (d *Describer) tableNames(ctx context.Context) ([]string, error) {
	rs, err := d.conn.Query(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name ASC", nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "read table names", Err: err}
	}

	var names []string
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			continue
		}
		names = append(names, name)
	}

	d.logger.Debug("found table names", "names", names)
	return names, nil
}

func (d *Describer) describeTable(ctx context.Context, name string) (*types.Table, error) {
	columns, primaryKey, err := d.describeColumns(ctx, name)
	if err != nil {
		return nil, err
	}

	foreignKeys, err := d.describeForeignKeys(ctx, name)
	if err != nil {
		return nil, err
	}

	indexes, err := d.describeIndexes(ctx, name)
	if err != nil {
		return nil, err
	}

	return &types.Table{
		Name:        name,
		Columns:     columns,
		Indexes:     indexes,
		PrimaryKey:  primaryKey,
		ForeignKeys: foreignKeys,
	}, nil
}

// describeColumns reads the column list and recovers the primary key.
//
//	sqlite> PRAGMA table_info("a");
//	cid|name|type|notnull|dflt_value|pk
func (d *Describer) describeColumns(ctx context.Context, table string) ([]types.Column, *types.PrimaryKey, error) {
	query := fmt.Sprintf(`PRAGMA table_info (%s)`, quoteIdent(table))
	rs, err := d.conn.Query(ctx, query, nil)
	if err != nil {
		return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: err}
	}

	var columns []types.Column
	pkCols := make(map[int64]string)

	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(1)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		rawType, ok := row.StringAt(2)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		notNull, ok := row.BoolAt(3)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}

		arity := types.ArityNullable
		if notNull {
			arity = types.ArityRequired
		}
		tpe := columnType(rawType, arity)

		var def *types.DefaultValue
		if raw, hasDefault := row.StringAt(4); hasDefault {
			def = parseDefaultValue(tpe.Family, raw)
		}

		pkSeq, ok := row.Int64At(5)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		if pkSeq > 0 {
			pkCols[pkSeq] = name
		}

		columns = append(columns, types.Column{
			Name:    name,
			Type:    tpe,
			Default: def,
		})
	}

	if len(pkCols) == 0 {
		return columns, nil, nil
	}

	// Order the primary key columns by their key sequence number, not by
	// declaration order.
	seqs := make([]int64, 0, len(pkCols))
	for seq := range pkCols {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	ordered := make([]string, 0, len(seqs))
	for _, seq := range seqs {
		ordered = append(ordered, pkCols[seq])
	}

	// A single INTEGER primary key column aliases the rowid and therefore
	// auto-increments.
	if len(ordered) == 1 {
		for i := range columns {
			if columns[i].Name == ordered[0] && strings.EqualFold(columns[i].Type.FullDataType, "integer") {
				columns[i].AutoIncrement = true
			}
		}
	}

	return columns, &types.PrimaryKey{Columns: ordered}, nil
}

// describeForeignKeys reads and groups the foreign key list.
//
//	sqlite> PRAGMA foreign_key_list("b");
//	id|seq|table|from|to|on_update|on_delete|match
func (d *Describer) describeForeignKeys(ctx context.Context, table string) ([]types.ForeignKey, error) {
	query := fmt.Sprintf(`PRAGMA foreign_key_list(%s);`, quoteIdent(table))
	rs, err := d.conn.Query(ctx, query, nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: err}
	}

	// One foreign key with multiple columns arrives as several rows sharing
	// an id, so group through an intermediate representation first.
	type intermediate struct {
		columns           map[int64]string
		referencedTable   string
		referencedColumns map[int64]string
		onDelete          types.ForeignKeyAction
		onUpdate          types.ForeignKeyAction
	}

	grouped := make(map[int64]*intermediate)
	var order []int64

	for _, row := range shell.Rows(rs) {
		id, ok := row.Int64At(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		seq, ok := row.Int64At(1)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		referencedTable, ok := row.StringAt(2)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		column, ok := row.StringAt(3)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		// NULL when the shortened foreign key syntax referencing the
		// primary key was used.
		referencedColumn, hasReferenced := row.StringAt(4)

		fk, exists := grouped[id]
		if !exists {
			onUpdateRaw, ok := row.StringAt(5)
			if !ok {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
			}
			onDeleteRaw, ok := row.StringAt(6)
			if !ok {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
			}
			onUpdate, err := referentialAction(onUpdateRaw)
			if err != nil {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: err}
			}
			onDelete, err := referentialAction(onDeleteRaw)
			if err != nil {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: err}
			}

			fk = &intermediate{
				columns:           make(map[int64]string),
				referencedTable:   referencedTable,
				referencedColumns: make(map[int64]string),
				onDelete:          onDelete,
				onUpdate:          onUpdate,
			}
			grouped[id] = fk
			order = append(order, id)
		}

		fk.columns[seq] = column
		if hasReferenced {
			fk.referencedColumns[seq] = referencedColumn
		}
	}

	fks := make([]types.ForeignKey, 0, len(grouped))
	for _, id := range order {
		fk := grouped[id]
		fks = append(fks, types.ForeignKey{
			Columns:           orderedBySeq(fk.columns),
			ReferencedTable:   fk.referencedTable,
			ReferencedColumns: orderedBySeq(fk.referencedColumns),
			OnDelete:          fk.onDelete,
			OnUpdate:          fk.onUpdate,
			// SQLite cannot ALTER or DROP foreign keys by constraint
			// name, so none is recorded.
		})
	}

	sort.SliceStable(fks, func(i, j int) bool {
		return strings.Join(fks[i].Columns, "\x00") < strings.Join(fks[j].Columns, "\x00")
	})

	return fks, nil
}

// describeIndexes reads the index list, excluding primary key backing
// indexes and partial indexes.
//
//	sqlite> PRAGMA index_list("a");
//	seq|name|unique|origin|partial
func (d *Describer) describeIndexes(ctx context.Context, table string) ([]types.Index, error) {
	query := fmt.Sprintf(`PRAGMA index_list(%s);`, quoteIdent(table))
	rs, err := d.conn.Query(ctx, query, nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: err}
	}

	var indexes []types.Index
	for _, row := range shell.Rows(rs) {
		origin, ok := row.StringAt(3)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}
		// Primary keys are recovered from the column list instead.
		if origin == "pk" {
			continue
		}
		partial, ok := row.BoolAt(4)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}
		if partial {
			continue
		}

		name, ok := row.StringAt(1)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}
		unique, ok := row.BoolAt(2)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}

		index := types.Index{
			Name: name,
			Type: types.IndexNormal,
		}
		if unique {
			index.Type = types.IndexUnique
		}

		columns, err := d.indexColumns(ctx, table, name)
		if err != nil {
			return nil, err
		}
		index.Columns = columns

		indexes = append(indexes, index)
	}

	return indexes, nil
}

// indexColumns places each index column at its explicit ordinal position.
//
//	sqlite> PRAGMA index_info("idx");
//	seqno|cid|name
func (d *Describer) indexColumns(ctx context.Context, table, index string) ([]string, error) {
	query := fmt.Sprintf(`PRAGMA index_info(%s);`, quoteIdent(index))
	rs, err := d.conn.Query(ctx, query, nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "read index columns", Table: table, Err: err}
	}

	var columns []string
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(2)
		if !ok {
			// An anonymous position means the index covers the rowid or
			// an expression; only the already-known prefix is kept.
			break
		}
		pos, ok := row.Int64At(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read index columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		for int64(len(columns)) <= pos {
			columns = append(columns, "")
		}
		columns[pos] = name
	}

	return columns, nil
}

func (d *Describer) views(ctx context.Context) ([]types.View, error) {
	rs, err := d.conn.Query(ctx, "SELECT name AS view_name, sql AS view_sql FROM sqlite_master WHERE type = 'view'", nil)
	if err != nil {
		return nil, &types.DescribeError{Op: "read views", Err: err}
	}

	var views []types.View
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read views", Err: types.ErrMalformedCatalog}
		}
		definition, _ := row.StringAt(1)
		views = append(views, types.View{Name: name, Definition: definition})
	}

	return views, nil
}

// resolveShorthandForeignKeys substitutes the referenced table's primary key
// columns into foreign keys declared without explicit referenced columns.
func resolveShorthandForeignKeys(tables []types.Table) error {
	byName := make(map[string]*types.Table, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	for i := range tables {
		for j := range tables[i].ForeignKeys {
			fk := &tables[i].ForeignKeys[j]
			if len(fk.ReferencedColumns) > 0 {
				continue
			}
			referenced, ok := byName[fk.ReferencedTable]
			if !ok || referenced.PrimaryKey == nil {
				return &types.DescribeError{
					Op:    "resolve foreign key referenced columns",
					Table: tables[i].Name,
					Err:   fmt.Errorf("%w: table %q has no primary key to substitute", types.ErrMalformedCatalog, fk.ReferencedTable),
				}
			}
			fk.ReferencedColumns = append([]string(nil), referenced.PrimaryKey.Columns...)
		}
	}

	return nil
}

func orderedBySeq(m map[int64]string) []string {
	seqs := make([]int64, 0, len(m))
	for seq := range m {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	out := make([]string, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, m[seq])
	}
	return out
}

func referentialAction(raw string) (types.ForeignKeyAction, error) {
	switch strings.ToLower(raw) {
	case "no action":
		return types.NoAction, nil
	case "restrict":
		return types.Restrict, nil
	case "set null":
		return types.SetNull, nil
	case "set default":
		return types.SetDefault, nil
	case "cascade":
		return types.Cascade, nil
	default:
		return "", fmt.Errorf("%w: unrecognized referential action %q", types.ErrMalformedCatalog, raw)
	}
}

// columnType maps a raw SQLite type string to a column type. SQLite has few
// native data types but tolerates nearly any type name on a column, so the
// mapping goes by literal and substring rules, case-insensitively.
func columnType(raw string, arity types.ColumnArity) types.ColumnType {
	lower := strings.ToLower(raw)

	var family types.ColumnFamily
	switch {
	case lower == "int" || lower == "integer" || lower == "serial":
		family = types.FamilyInt
	case lower == "bigint":
		family = types.FamilyBigInt
	case lower == "real" || lower == "float" || lower == "double":
		family = types.FamilyFloat
	case lower == "boolean":
		family = types.FamilyBoolean
	case lower == "text":
		family = types.FamilyString
	case strings.Contains(lower, "char"):
		family = types.FamilyString
	case strings.Contains(lower, "numeric"), strings.HasPrefix(lower, "decimal"):
		family = types.FamilyDecimal
	case lower == "date" || lower == "datetime" || lower == "timestamp":
		family = types.FamilyDateTime
	case lower == "binary" || lower == "blob":
		family = types.FamilyBinary
	default:
		family = types.FamilyUnsupported
	}

	return types.ColumnType{
		FullDataType: raw,
		Family:       family,
		Arity:        arity,
	}
}

// A string constant is enclosed in single quotes, and a quote within the
// string is encoded by doubling it; C-style backslash escapes are not SQL.
// See https://www.sqlite.org/lang_expr.html.
var (
	stringDefaultRe  = regexp.MustCompile(`(?ms)^'(.*)'$|^"(.*)"$`)
	escapedQuoteRe   = regexp.MustCompile(`''`)
	nowDefaultValues = map[string]struct{}{
		"current_timestamp":            {},
		"datetime('now')":              {},
		"datetime('now', 'localtime')": {},
	}
)

// parseDefaultValue classifies a raw default value by column family: parse
// the literal where possible, recognize current-timestamp spellings for
// datetime columns, and fall back to a database-generated expression.
func parseDefaultValue(family types.ColumnFamily, raw string) *types.DefaultValue {
	if strings.ToLower(raw) == "null" {
		return nil
	}

	switch family {
	case types.FamilyInt, types.FamilyBigInt:
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return types.NewValueDefault(raw)
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyFloat, types.FamilyDecimal:
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return types.NewValueDefault(raw)
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyBoolean:
		switch strings.ToLower(raw) {
		case "0", "false":
			return types.NewValueDefault("false")
		case "1", "true":
			return types.NewValueDefault("true")
		default:
			return types.NewDBGeneratedDefault(raw)
		}
	case types.FamilyString:
		return types.NewValueDefault(unquoteString(raw))
	case types.FamilyDateTime:
		if _, ok := nowDefaultValues[strings.ToLower(raw)]; ok {
			return types.NewNowDefault()
		}
		return types.NewDBGeneratedDefault(raw)
	default:
		return types.NewDBGeneratedDefault(raw)
	}
}

// quoteIdent wraps an identifier in double quotes for interpolation into a
// PRAGMA. A quote inside the name is escaped by doubling it, not with a
// backslash.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// unquoteString strips the SQL quoting around a string default and
// un-escapes doubled quote characters.
func unquoteString(raw string) string {
	stripped := stringDefaultRe.ReplaceAllString(raw, "$1$2")
	return escapedQuoteRe.ReplaceAllString(stripped, "'")
}
