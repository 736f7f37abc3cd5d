// Package sqlite renders migration steps into SQLite SQL.
//
// SQLite cannot alter a column in place, add a foreign key to an existing
// table, or represent enums at all. Column alterations and drops go through
// the shadow-table dance: create the new shape under a temporary name, copy
// the surviving rows, drop the original, rename the shadow into place and
// recreate the indexes. Foreign key and enum steps render no statements.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/stokaro/seshat/core/platform"
	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/steps"
)

// Renderer renders steps for SQLite.
type Renderer struct{}

// New creates a SQLite renderer.
func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Name() string {
	return platform.SQLite
}

func (r *Renderer) CreateTable(_ *types.Schema, table *types.Table) []string {
	return []string{r.createTableAs(table, table.Name)}
}

// createTableAs renders the CREATE TABLE body under the given name, which
// differs from the table's own name for shadow tables. Foreign keys are
// inlined because SQLite has no ALTER TABLE ADD CONSTRAINT.
func (r *Renderer) createTableAs(table *types.Table, name string) string {
	var defs []string
	for i := range table.Columns {
		defs = append(defs, r.columnDefinition(table, &table.Columns[i]))
	}
	if pk := table.PrimaryKey; pk != nil && !singleAutoIncrement(table, pk) {
		defs = append(defs, "PRIMARY KEY ("+quoteJoin(pk.Columns)+")")
	}
	for i := range table.ForeignKeys {
		fk := &table.ForeignKeys[i]
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
			quoteJoin(fk.Columns), quote(fk.ReferencedTable), quoteJoin(fk.ReferencedColumns),
			fk.OnDelete, fk.OnUpdate))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quote(name), strings.Join(defs, ",\n    "))
}

func (r *Renderer) DropTable(table *types.Table) []string {
	return []string{"DROP TABLE " + quote(table.Name)}
}

func (r *Renderer) AlterTable(schemas steps.Pair[*types.Schema], tables steps.Pair[*types.Table], changes []render.ColumnChange) []string {
	// Only pure column additions are expressible in place. Anything else
	// rebuilds the table.
	for _, change := range changes {
		if change.Kind != render.ChangeAddColumn {
			return r.redefineTable(tables)
		}
	}

	var stmts []string
	for _, change := range changes {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			quote(tables.Next.Name), r.columnDefinition(tables.Next, change.Columns.Next)))
	}
	return stmts
}

func (r *Renderer) RedefineTables(_ steps.Pair[*types.Schema], tables []steps.Pair[*types.Table]) []string {
	stmts := []string{"PRAGMA foreign_keys=OFF"}
	for _, pair := range tables {
		stmts = append(stmts, r.redefineTable(pair)...)
	}
	return append(stmts, "PRAGMA foreign_keys=ON")
}

// redefineTable performs the shadow-table dance for one table. Only columns
// present on both sides carry their data over.
func (r *Renderer) redefineTable(tables steps.Pair[*types.Table]) []string {
	shadow := "new_" + tables.Next.Name

	common := commonColumns(tables)
	stmts := []string{r.createTableAs(tables.Next, shadow)}
	if len(common) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			quote(shadow), quoteJoin(common), quoteJoin(common), quote(tables.Previous.Name)))
	}
	stmts = append(stmts,
		"DROP TABLE "+quote(tables.Previous.Name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(shadow), quote(tables.Next.Name)),
	)
	for i := range tables.Next.Indexes {
		stmts = append(stmts, r.CreateIndex(tables.Next, &tables.Next.Indexes[i])...)
	}
	return stmts
}

func (r *Renderer) CreateIndex(table *types.Table, index *types.Index) []string {
	unique := ""
	if index.Type == types.IndexUnique {
		unique = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
		unique, quote(index.Name), quote(table.Name), quoteJoin(index.Columns))
	return []string{stmt}
}

func (r *Renderer) DropIndex(_ *types.Table, index *types.Index) []string {
	return []string{"DROP INDEX " + quote(index.Name)}
}

// AlterIndex has no in-place form on SQLite and renders the same as a
// redefine.
func (r *Renderer) AlterIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string {
	return r.RedefineIndex(tables, indexes)
}

func (r *Renderer) RedefineIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string {
	stmts := r.DropIndex(tables.Previous, indexes.Previous)
	return append(stmts, r.CreateIndex(tables.Next, indexes.Next)...)
}

// AddForeignKey renders nothing: foreign keys on existing tables require a
// table redefine, which the step producer emits instead.
func (r *Renderer) AddForeignKey(*types.Table, *types.ForeignKey) []string {
	return nil
}

// DropForeignKey renders nothing, for the same reason as AddForeignKey.
func (r *Renderer) DropForeignKey(*types.Table, *types.ForeignKey) []string {
	return nil
}

func (r *Renderer) CreateEnum(*types.Enum) []string {
	return nil
}

func (r *Renderer) DropEnum(*types.Enum) []string {
	return nil
}

func (r *Renderer) AlterEnum(steps.Pair[*types.Schema], steps.Pair[*types.Enum], []string, []string) []string {
	return nil
}

func (r *Renderer) columnDefinition(table *types.Table, column *types.Column) string {
	def := quote(column.Name) + " " + columnTypeSQL(column)
	if column.AutoIncrement {
		// The rowid alias must be declared inline; a table-level PRIMARY
		// KEY clause would lose the aliasing.
		def += " PRIMARY KEY AUTOINCREMENT"
		return def
	}
	if column.Type.Arity == types.ArityRequired {
		def += " NOT NULL"
	}
	if column.Default != nil {
		def += " DEFAULT " + defaultSQL(column.Default)
	}
	return def
}

func columnTypeSQL(column *types.Column) string {
	switch column.Type.Family {
	case types.FamilyInt, types.FamilyBigInt:
		return "INTEGER"
	case types.FamilyFloat:
		return "REAL"
	case types.FamilyDecimal:
		return "DECIMAL"
	case types.FamilyBoolean:
		return "BOOLEAN"
	case types.FamilyString, types.FamilyEnum, types.FamilyUUID:
		return "TEXT"
	case types.FamilyDateTime:
		return "DATETIME"
	case types.FamilyBinary:
		return "BLOB"
	case types.FamilyJSON:
		return "JSONB"
	default:
		return column.Type.FullDataType
	}
}

func defaultSQL(def *types.DefaultValue) string {
	switch def.Kind {
	case types.DefaultNow:
		return "CURRENT_TIMESTAMP"
	case types.DefaultValueKind:
		switch def.Value {
		case "true":
			return "true"
		case "false":
			return "false"
		}
		if isNumeric(def.Value) {
			return def.Value
		}
		return literal(def.Value)
	default:
		return def.Value
	}
}

// singleAutoIncrement reports whether the primary key is fully expressed by
// an inline rowid-alias column declaration.
func singleAutoIncrement(table *types.Table, pk *types.PrimaryKey) bool {
	if len(pk.Columns) != 1 {
		return false
	}
	for i := range table.Columns {
		if table.Columns[i].Name == pk.Columns[0] {
			return table.Columns[i].AutoIncrement
		}
	}
	return false
}

func commonColumns(tables steps.Pair[*types.Table]) []string {
	previous := make(map[string]struct{}, len(tables.Previous.Columns))
	for i := range tables.Previous.Columns {
		previous[tables.Previous.Columns[i].Name] = struct{}{}
	}

	var common []string
	for i := range tables.Next.Columns {
		if _, ok := previous[tables.Next.Columns[i].Name]; ok {
			common = append(common, tables.Next.Columns[i].Name)
		}
	}
	return common
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' && c != 'e' && c != 'E' {
			return false
		}
	}
	return true
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func literal(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quote(name)
	}
	return strings.Join(quoted, ", ")
}
