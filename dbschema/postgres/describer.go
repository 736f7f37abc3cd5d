// Package postgres reads a live PostgreSQL database into a schema snapshot.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stokaro/seshat/config"
	"github.com/stokaro/seshat/dbschema/shell"
	"github.com/stokaro/seshat/dbschema/types"
)

// Describer reads schema snapshots from PostgreSQL databases.
type Describer struct {
	conn   shell.Shell
	schema string
	opts   *config.DescribeOptions
	logger *slog.Logger
}

// NewDescriber creates a describer for the given namespace. An empty schema
// selects "public".
func NewDescriber(conn shell.Shell, schema string) *Describer {
	if schema == "" {
		schema = "public"
	}
	return &Describer{
		conn:   conn,
		schema: schema,
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
	enums, err := d.describeEnums(ctx)
	if err != nil {
		return nil, err
	}

	enumNames := make(map[string]struct{}, len(enums))
	for _, e := range enums {
		enumNames[e.Name] = struct{}{}
	}

	tableNames, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]types.Table, 0, len(tableNames))
	for _, name := range tableNames {
		if d.opts.IsTableIgnored(name) {
			continue
		}
		table, err := d.describeTable(ctx, name, enumNames)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	views, err := d.describeViews(ctx)
	if err != nil {
		return nil, err
	}

	sequences, err := d.describeSequences(ctx)
	if err != nil {
		return nil, err
	}

	return &types.Schema{
		Tables:    tables,
		Views:     views,
		Enums:     enums,
		Sequences: sequences,
	}, nil
}

func (d *Describer) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rs, err := d.conn.Query(ctx, query, []string{d.schema})
	if err != nil {
		return nil, &types.DescribeError{Op: "read table names", Err: err}
	}

	var names []string
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read table names", Err: types.ErrMalformedCatalog}
		}
		names = append(names, name)
	}

	d.logger.Debug("found table names", "schema", d.schema, "names", names)
	return names, nil
}

func (d *Describer) describeTable(ctx context.Context, name string, enumNames map[string]struct{}) (*types.Table, error) {
	columns, err := d.describeColumns(ctx, name, enumNames)
	if err != nil {
		return nil, err
	}

	primaryKey, err := d.describePrimaryKey(ctx, name)
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

func (d *Describer) describeColumns(ctx context.Context, table string, enumNames map[string]struct{}) ([]types.Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rs, err := d.conn.Query(ctx, query, []string{d.schema, table})
	if err != nil {
		return nil, &types.DescribeError{Op: "read columns", Table: table, Err: err}
	}

	var columns []types.Column
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		dataType, ok := row.StringAt(1)
		if !ok {
			return nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		udtName, ok := row.StringAt(2)
		if !ok {
			return nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		nullable, ok := row.StringAt(3)
		if !ok {
			return nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}

		arity := types.ArityRequired
		if strings.EqualFold(nullable, "YES") {
			arity = types.ArityNullable
		}
		tpe := columnType(dataType, udtName, arity, enumNames)

		column := types.Column{
			Name: name,
			Type: tpe,
		}

		if rawDefault, hasDefault := row.StringAt(4); hasDefault {
			// SERIAL columns surface as integer columns defaulting to
			// nextval() on their backing sequence.
			if strings.Contains(rawDefault, "nextval(") && strings.Contains(rawDefault, "_seq") {
				column.AutoIncrement = true
			} else {
				column.Default = parseDefaultValue(tpe.Family, rawDefault)
			}
		}

		columns = append(columns, column)
	}

	return columns, nil
}

// describePrimaryKey recovers the primary key constraint with its columns
// ordered by key ordinal, independent of declaration order.
func (d *Describer) describePrimaryKey(ctx context.Context, table string) (*types.PrimaryKey, error) {
	query := `
		SELECT kcu.column_name, tc.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
		AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`

	rs, err := d.conn.Query(ctx, query, []string{d.schema, table})
	if err != nil {
		return nil, &types.DescribeError{Op: "read primary key", Table: table, Err: err}
	}

	var pk types.PrimaryKey
	for _, row := range shell.Rows(rs) {
		column, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read primary key", Table: table, Err: types.ErrMalformedCatalog}
		}
		pk.Columns = append(pk.Columns, column)
		if name, ok := row.StringAt(1); ok {
			pk.ConstraintName = name
		}
	}

	if len(pk.Columns) == 0 {
		return nil, nil
	}
	return &pk, nil
}

// describeForeignKeys reads foreign keys, grouping the one-row-per-column
// catalog output by constraint name with columns in ordinal order.
func (d *Describer) describeForeignKeys(ctx context.Context, table string) ([]types.ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
		AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.constraint_name, kcu.ordinal_position`

	rs, err := d.conn.Query(ctx, query, []string{d.schema, table})
	if err != nil {
		return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: err}
	}

	grouped := make(map[string]*types.ForeignKey)
	var order []string

	for _, row := range shell.Rows(rs) {
		constraint, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		column, ok := row.StringAt(1)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		referencedTable, ok := row.StringAt(2)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}
		referencedColumn, ok := row.StringAt(3)
		if !ok {
			return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
		}

		fk, exists := grouped[constraint]
		if !exists {
			deleteRule, ok := row.StringAt(4)
			if !ok {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
			}
			updateRule, ok := row.StringAt(5)
			if !ok {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: types.ErrMalformedCatalog}
			}
			onDelete, err := referentialAction(deleteRule)
			if err != nil {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: err}
			}
			onUpdate, err := referentialAction(updateRule)
			if err != nil {
				return nil, &types.DescribeError{Op: "read foreign keys", Table: table, Err: err}
			}

			fk = &types.ForeignKey{
				ConstraintName:  constraint,
				ReferencedTable: referencedTable,
				OnDelete:        onDelete,
				OnUpdate:        onUpdate,
			}
			grouped[constraint] = fk
			order = append(order, constraint)
		}

		fk.Columns = append(fk.Columns, column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, referencedColumn)
	}

	fks := make([]types.ForeignKey, 0, len(grouped))
	for _, constraint := range order {
		fks = append(fks, *grouped[constraint])
	}
	return fks, nil
}

// describeIndexes reads secondary indexes, excluding the primary key backing
// index and partial indexes.
func (d *Describer) describeIndexes(ctx context.Context, table string) ([]types.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			a.attname AS column_name,
			ix.indisunique,
			am.amname AS algorithm
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1 AND t.relname = $2
		AND NOT ix.indisprimary
		AND ix.indpred IS NULL
		ORDER BY i.relname, k.ord`

	rs, err := d.conn.Query(ctx, query, []string{d.schema, table})
	if err != nil {
		return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: err}
	}

	grouped := make(map[string]*types.Index)
	var order []string

	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}
		column, ok := row.StringAt(1)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}

		index, exists := grouped[name]
		if !exists {
			unique, ok := row.BoolAt(2)
			if !ok {
				return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
			}
			index = &types.Index{
				Name: name,
				Type: types.IndexNormal,
			}
			if unique {
				index.Type = types.IndexUnique
			}
			if algorithm, ok := row.StringAt(3); ok {
				index.Algorithm = algorithm
			}
			grouped[name] = index
			order = append(order, name)
		}

		index.Columns = append(index.Columns, column)
	}

	indexes := make([]types.Index, 0, len(grouped))
	for _, name := range order {
		indexes = append(indexes, *grouped[name])
	}
	return indexes, nil
}

func (d *Describer) describeEnums(ctx context.Context) ([]types.Enum, error) {
	query := `
		SELECT t.typname AS enum_name, e.enumlabel AS enum_value
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`

	rs, err := d.conn.Query(ctx, query, []string{d.schema})
	if err != nil {
		return nil, &types.DescribeError{Op: "read enums", Err: err}
	}

	grouped := make(map[string]*types.Enum)
	var order []string

	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read enums", Err: types.ErrMalformedCatalog}
		}
		value, ok := row.StringAt(1)
		if !ok {
			return nil, &types.DescribeError{Op: "read enums", Err: types.ErrMalformedCatalog}
		}

		enum, exists := grouped[name]
		if !exists {
			enum = &types.Enum{Name: name}
			grouped[name] = enum
			order = append(order, name)
		}
		enum.Values = append(enum.Values, value)
	}

	enums := make([]types.Enum, 0, len(grouped))
	for _, name := range order {
		enums = append(enums, *grouped[name])
	}
	return enums, nil
}

func (d *Describer) describeViews(ctx context.Context) ([]types.View, error) {
	query := `
		SELECT table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`

	rs, err := d.conn.Query(ctx, query, []string{d.schema})
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

func (d *Describer) describeSequences(ctx context.Context) ([]types.Sequence, error) {
	query := `
		SELECT sequence_name, start_value, increment
		FROM information_schema.sequences
		WHERE sequence_schema = $1
		ORDER BY sequence_name`

	rs, err := d.conn.Query(ctx, query, []string{d.schema})
	if err != nil {
		return nil, &types.DescribeError{Op: "read sequences", Err: err}
	}

	var sequences []types.Sequence
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read sequences", Err: types.ErrMalformedCatalog}
		}
		seq := types.Sequence{Name: name}
		if start, ok := row.Int64At(1); ok {
			seq.InitialValue = start
		}
		if increment, ok := row.Int64At(2); ok {
			seq.AllocationSize = increment
		}
		sequences = append(sequences, seq)
	}
	return sequences, nil
}

func referentialAction(raw string) (types.ForeignKeyAction, error) {
	switch strings.ToUpper(raw) {
	case "NO ACTION":
		return types.NoAction, nil
	case "RESTRICT":
		return types.Restrict, nil
	case "CASCADE":
		return types.Cascade, nil
	case "SET NULL":
		return types.SetNull, nil
	case "SET DEFAULT":
		return types.SetDefault, nil
	default:
		return "", fmt.Errorf("%w: unrecognized referential action %q", types.ErrMalformedCatalog, raw)
	}
}

// columnType maps information_schema type output to a column type. The udt
// name disambiguates where data_type reports a generic bucket ("USER-DEFINED"
// for enums, "ARRAY" for list columns).
func columnType(dataType, udtName string, arity types.ColumnArity, enumNames map[string]struct{}) types.ColumnType {
	lower := strings.ToLower(dataType)

	if lower == "array" {
		arity = types.ArityList
		// Array element udt names carry a leading underscore.
		udtName = strings.TrimPrefix(udtName, "_")
		lower = strings.ToLower(udtName)
	}

	var family types.ColumnFamily
	var native string
	switch {
	case lower == "user-defined":
		if _, ok := enumNames[udtName]; ok {
			family = types.FamilyEnum
			native = udtName
		} else {
			family = types.FamilyUnsupported
			native = udtName
		}
	case lower == "smallint" || lower == "integer" || lower == "int2" || lower == "int4":
		family = types.FamilyInt
	case lower == "bigint" || lower == "int8":
		family = types.FamilyBigInt
	case lower == "real" || lower == "double precision" || lower == "float4" || lower == "float8":
		family = types.FamilyFloat
	case strings.HasPrefix(lower, "numeric") || strings.HasPrefix(lower, "decimal"):
		family = types.FamilyDecimal
	case lower == "boolean" || lower == "bool":
		family = types.FamilyBoolean
	case lower == "text" || strings.Contains(lower, "char"):
		family = types.FamilyString
	case lower == "uuid":
		family = types.FamilyUUID
	case lower == "json" || lower == "jsonb":
		family = types.FamilyJSON
	case lower == "bytea":
		family = types.FamilyBinary
	case lower == "date" || strings.HasPrefix(lower, "time"):
		family = types.FamilyDateTime
	default:
		family = types.FamilyUnsupported
	}

	return types.ColumnType{
		FullDataType: dataType,
		Family:       family,
		Arity:        arity,
		NativeType:   native,
	}
}

// parseDefaultValue classifies a pg_get_expr default by column family.
// PostgreSQL reports literal defaults with a cast suffix ('x'::text).
func parseDefaultValue(family types.ColumnFamily, raw string) *types.DefaultValue {
	expr := stripCast(raw)

	switch family {
	case types.FamilyDateTime:
		switch strings.ToLower(expr) {
		case "now()", "current_timestamp":
			return types.NewNowDefault()
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyString, types.FamilyEnum, types.FamilyUUID:
		if strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'") && len(expr) >= 2 {
			inner := expr[1 : len(expr)-1]
			return types.NewValueDefault(strings.ReplaceAll(inner, "''", "'"))
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyInt, types.FamilyBigInt:
		if _, err := strconv.ParseInt(expr, 10, 64); err == nil {
			return types.NewValueDefault(expr)
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyFloat, types.FamilyDecimal:
		if _, err := strconv.ParseFloat(expr, 64); err == nil {
			return types.NewValueDefault(expr)
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyBoolean:
		switch strings.ToLower(expr) {
		case "0", "false":
			return types.NewValueDefault("false")
		case "1", "true":
			return types.NewValueDefault("true")
		default:
			return types.NewDBGeneratedDefault(raw)
		}
	default:
		return types.NewDBGeneratedDefault(raw)
	}
}

// stripCast removes a trailing ::type cast outside of quotes.
func stripCast(expr string) string {
	depth := 0
	inString := false
	for i := 0; i < len(expr); i++ {
		switch {
		case expr[i] == '\'':
			inString = !inString
		case inString:
		case expr[i] == '(':
			depth++
		case expr[i] == ')':
			depth--
		case depth == 0 && expr[i] == ':' && i+1 < len(expr) && expr[i+1] == ':':
			return expr[:i]
		}
	}
	return expr
}
