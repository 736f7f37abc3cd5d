// Package mysql reads a live MySQL or MariaDB database into a schema
// snapshot. Enums are inline column types here, so each enum column also
// contributes a synthetic schema-level enum named after its table and column.
package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stokaro/seshat/config"
	"github.com/stokaro/seshat/dbschema/shell"
	"github.com/stokaro/seshat/dbschema/types"
)

// Describer reads schema snapshots from MySQL and MariaDB databases.
type Describer struct {
	conn   shell.Shell
	schema string
	opts   *config.DescribeOptions
	logger *slog.Logger
}

// NewDescriber creates a describer for the given database name. An empty
// schema selects the connected database.
func NewDescriber(conn shell.Shell, schema string) *Describer {
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
	tableNames, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	var tables []types.Table
	var enums []types.Enum
	for _, name := range tableNames {
		if d.opts.IsTableIgnored(name) {
			continue
		}
		table, tableEnums, err := d.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
		enums = append(enums, tableEnums...)
	}

	views, err := d.describeViews(ctx)
	if err != nil {
		return nil, err
	}

	return &types.Schema{
		Tables: tables,
		Views:  views,
		Enums:  enums,
	}, nil
}

// schemaParams returns the schema selector used in WHERE clauses and the
// parameter list to bind, depending on whether an explicit schema is set.
func (d *Describer) schemaParams(extra ...string) (string, []string) {
	if d.schema == "" {
		return "DATABASE()", extra
	}
	return "?", append([]string{d.schema}, extra...)
}

func (d *Describer) tableNames(ctx context.Context) ([]string, error) {
	schemaExpr, params := d.schemaParams()
	query := fmt.Sprintf(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = %s AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaExpr)

	rs, err := d.conn.Query(ctx, query, params)
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

	d.logger.Debug("found table names", "names", names)
	return names, nil
}

func (d *Describer) describeTable(ctx context.Context, name string) (*types.Table, []types.Enum, error) {
	columns, enums, err := d.describeColumns(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	primaryKey, err := d.describePrimaryKey(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	foreignKeys, err := d.describeForeignKeys(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	indexes, err := d.describeIndexes(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	table := &types.Table{
		Name:        name,
		Columns:     columns,
		Indexes:     indexes,
		PrimaryKey:  primaryKey,
		ForeignKeys: foreignKeys,
	}
	return table, enums, nil
}

func (d *Describer) describeColumns(ctx context.Context, table string) ([]types.Column, []types.Enum, error) {
	schemaExpr, params := d.schemaParams(table)
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			column_type,
			is_nullable,
			column_default,
			extra
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = ?
		ORDER BY ordinal_position`, schemaExpr)

	rs, err := d.conn.Query(ctx, query, params)
	if err != nil {
		return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: err}
	}

	var columns []types.Column
	var enums []types.Enum
	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		dataType, ok := row.StringAt(1)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		fullType, ok := row.StringAt(2)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		nullable, ok := row.StringAt(3)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}
		extra, ok := row.StringAt(5)
		if !ok {
			return nil, nil, &types.DescribeError{Op: "read columns", Table: table, Err: types.ErrMalformedCatalog}
		}

		arity := types.ArityRequired
		if strings.EqualFold(nullable, "YES") {
			arity = types.ArityNullable
		}
		tpe := columnType(dataType, fullType, arity)

		// MySQL declares enums inline on the column; a synthetic enum named
		// <table>_<column> carries the variants at the schema level so enum
		// steps have something to reference.
		if tpe.Family == types.FamilyEnum {
			enumName := table + "_" + name
			tpe.NativeType = enumName
			enums = append(enums, types.Enum{
				Name:   enumName,
				Values: parseEnumVariants(fullType),
			})
		}

		column := types.Column{
			Name:          name,
			Type:          tpe,
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		}

		if rawDefault, hasDefault := row.StringAt(4); hasDefault && !column.AutoIncrement {
			column.Default = parseDefaultValue(tpe.Family, rawDefault, extra)
		}

		columns = append(columns, column)
	}

	return columns, enums, nil
}

func (d *Describer) describePrimaryKey(ctx context.Context, table string) (*types.PrimaryKey, error) {
	schemaExpr, params := d.schemaParams(table)
	query := fmt.Sprintf(`
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = %s AND table_name = ?
		AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, schemaExpr)

	rs, err := d.conn.Query(ctx, query, params)
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
	}

	if len(pk.Columns) == 0 {
		return nil, nil
	}
	return &pk, nil
}

func (d *Describer) describeForeignKeys(ctx context.Context, table string) ([]types.ForeignKey, error) {
	schemaExpr, params := d.schemaParams(table)
	query := fmt.Sprintf(`
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = kcu.constraint_name
			AND rc.constraint_schema = kcu.table_schema
		WHERE kcu.table_schema = %s AND kcu.table_name = ?
		AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`, schemaExpr)

	rs, err := d.conn.Query(ctx, query, params)
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

// describeIndexes reads secondary indexes from the statistics table with
// columns ordered by their position within each index. A NULL column name
// marks an expression member; only the prefix before it is kept.
func (d *Describer) describeIndexes(ctx context.Context, table string) ([]types.Index, error) {
	schemaExpr, params := d.schemaParams(table)
	query := fmt.Sprintf(`
		SELECT index_name, column_name, non_unique, index_type
		FROM information_schema.statistics
		WHERE table_schema = %s AND table_name = ?
		AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index`, schemaExpr)

	rs, err := d.conn.Query(ctx, query, params)
	if err != nil {
		return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: err}
	}

	grouped := make(map[string]*types.Index)
	truncated := make(map[string]bool)
	var order []string

	for _, row := range shell.Rows(rs) {
		name, ok := row.StringAt(0)
		if !ok {
			return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
		}

		index, exists := grouped[name]
		if !exists {
			nonUnique, ok := row.BoolAt(2)
			if !ok {
				return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
			}
			indexType, ok := row.StringAt(3)
			if !ok {
				return nil, &types.DescribeError{Op: "read indexes", Table: table, Err: types.ErrMalformedCatalog}
			}

			index = &types.Index{
				Name: name,
				Type: types.IndexNormal,
			}
			switch {
			case strings.EqualFold(indexType, "FULLTEXT"):
				index.Type = types.IndexFulltext
			case !nonUnique:
				index.Type = types.IndexUnique
			default:
				index.Algorithm = strings.ToLower(indexType)
			}
			grouped[name] = index
			order = append(order, name)
		}

		if truncated[name] {
			continue
		}
		column, ok := row.StringAt(1)
		if !ok {
			truncated[name] = true
			continue
		}
		index.Columns = append(index.Columns, column)
	}

	indexes := make([]types.Index, 0, len(grouped))
	for _, name := range order {
		indexes = append(indexes, *grouped[name])
	}
	return indexes, nil
}

func (d *Describer) describeViews(ctx context.Context) ([]types.View, error) {
	schemaExpr, params := d.schemaParams()
	query := fmt.Sprintf(`
		SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = %s
		ORDER BY table_name`, schemaExpr)

	rs, err := d.conn.Query(ctx, query, params)
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

func columnType(dataType, fullType string, arity types.ColumnArity) types.ColumnType {
	lower := strings.ToLower(dataType)

	var family types.ColumnFamily
	switch {
	case lower == "tinyint" && strings.HasPrefix(strings.ToLower(fullType), "tinyint(1)"):
		family = types.FamilyBoolean
	case lower == "tinyint" || lower == "smallint" || lower == "mediumint" || lower == "int":
		family = types.FamilyInt
	case lower == "bigint":
		family = types.FamilyBigInt
	case lower == "float" || lower == "double":
		family = types.FamilyFloat
	case lower == "decimal" || lower == "numeric":
		family = types.FamilyDecimal
	case lower == "enum":
		family = types.FamilyEnum
	case lower == "json":
		family = types.FamilyJSON
	case strings.Contains(lower, "char") || strings.Contains(lower, "text"):
		family = types.FamilyString
	case strings.Contains(lower, "blob") || lower == "binary" || lower == "varbinary":
		family = types.FamilyBinary
	case lower == "date" || lower == "datetime" || lower == "timestamp" || lower == "time" || lower == "year":
		family = types.FamilyDateTime
	default:
		family = types.FamilyUnsupported
	}

	return types.ColumnType{
		FullDataType: fullType,
		Family:       family,
		Arity:        arity,
	}
}

// parseEnumVariants extracts the variant list from an inline enum column
// type like enum('small','medium','large').
func parseEnumVariants(fullType string) []string {
	open := strings.Index(fullType, "(")
	closing := strings.LastIndex(fullType, ")")
	if open == -1 || closing == -1 || open >= closing {
		return nil
	}

	var variants []string
	for _, part := range strings.Split(fullType[open+1:closing], ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "'")
		part = strings.TrimSuffix(part, "'")
		variants = append(variants, strings.ReplaceAll(part, "''", "'"))
	}
	return variants
}

// parseDefaultValue classifies an information_schema column default by
// family. MySQL reports string defaults unquoted, so only the
// current-timestamp spellings and the DEFAULT_GENERATED extra need special
// handling.
func parseDefaultValue(family types.ColumnFamily, raw string, extra string) *types.DefaultValue {
	if strings.EqualFold(raw, "null") {
		return nil
	}
	if strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED") {
		if family == types.FamilyDateTime && isNowSpelling(raw) {
			return types.NewNowDefault()
		}
		return types.NewDBGeneratedDefault(raw)
	}

	switch family {
	case types.FamilyBoolean:
		switch raw {
		case "0":
			return types.NewValueDefault("false")
		case "1":
			return types.NewValueDefault("true")
		default:
			return types.NewDBGeneratedDefault(raw)
		}
	case types.FamilyDateTime:
		if isNowSpelling(raw) {
			return types.NewNowDefault()
		}
		return types.NewDBGeneratedDefault(raw)
	case types.FamilyInt, types.FamilyBigInt, types.FamilyFloat, types.FamilyDecimal,
		types.FamilyString, types.FamilyEnum:
		return types.NewValueDefault(raw)
	default:
		return types.NewDBGeneratedDefault(raw)
	}
}

func isNowSpelling(raw string) bool {
	switch strings.ToLower(raw) {
	case "current_timestamp", "current_timestamp()", "now()":
		return true
	default:
		return false
	}
}
