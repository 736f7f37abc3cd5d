// Package mysql renders migration steps into MySQL and MariaDB SQL. Enums
// are inline column types here, so schema-level enum steps render into the
// column definitions that use them instead of standalone statements.
package mysql

import (
	"fmt"
	"strings"

	"github.com/stokaro/seshat/core/platform"
	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/steps"
)

// Renderer renders steps for MySQL and MariaDB.
type Renderer struct {
	dialect string
}

// New creates a MySQL renderer.
func New() *Renderer {
	return &Renderer{dialect: platform.MySQL}
}

// NewMariaDB creates a MariaDB renderer. The SQL output is identical; the
// name matters for capability lookups.
func NewMariaDB() *Renderer {
	return &Renderer{dialect: platform.MariaDB}
}

func (r *Renderer) Name() string {
	return r.dialect
}

func (r *Renderer) CreateTable(schema *types.Schema, table *types.Table) []string {
	var defs []string
	for i := range table.Columns {
		defs = append(defs, r.columnDefinition(schema, &table.Columns[i]))
	}
	if pk := table.PrimaryKey; pk != nil {
		defs = append(defs, "PRIMARY KEY ("+quoteJoin(pk.Columns)+")")
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quote(table.Name), strings.Join(defs, ",\n    "))
	return []string{stmt}
}

func (r *Renderer) DropTable(table *types.Table) []string {
	return []string{"DROP TABLE " + quote(table.Name)}
}

func (r *Renderer) AlterTable(schemas steps.Pair[*types.Schema], tables steps.Pair[*types.Table], changes []render.ColumnChange) []string {
	var clauses []string
	for _, change := range changes {
		switch change.Kind {
		case render.ChangeAddColumn:
			clauses = append(clauses, "ADD COLUMN "+r.columnDefinition(schemas.Next, change.Columns.Next))
		case render.ChangeDropColumn:
			clauses = append(clauses, "DROP COLUMN "+quote(change.Columns.Previous.Name))
		case render.ChangeAlterColumn:
			// MODIFY restates the full definition, so one clause covers
			// type, nullability and default together.
			clauses = append(clauses, "MODIFY "+r.columnDefinition(schemas.Next, change.Columns.Next))
		}
	}
	if len(clauses) == 0 {
		return nil
	}

	stmt := "ALTER TABLE " + quote(tables.Next.Name) + " " + strings.Join(clauses, ",\n")
	return []string{stmt}
}

func (r *Renderer) RedefineTables(schemas steps.Pair[*types.Schema], tables []steps.Pair[*types.Table]) []string {
	var stmts []string
	for _, pair := range tables {
		stmts = append(stmts, r.DropTable(pair.Previous)...)
		stmts = append(stmts, r.CreateTable(schemas.Next, pair.Next)...)
	}
	return stmts
}

func (r *Renderer) CreateIndex(table *types.Table, index *types.Index) []string {
	kind := ""
	switch index.Type {
	case types.IndexUnique:
		kind = "UNIQUE "
	case types.IndexFulltext:
		kind = "FULLTEXT "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
		kind, quote(index.Name), quote(table.Name), quoteJoin(index.Columns))
	return []string{stmt}
}

func (r *Renderer) DropIndex(table *types.Table, index *types.Index) []string {
	return []string{fmt.Sprintf("DROP INDEX %s ON %s", quote(index.Name), quote(table.Name))}
}

func (r *Renderer) AlterIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string {
	stmt := fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s",
		quote(tables.Next.Name), quote(indexes.Previous.Name), quote(indexes.Next.Name))
	return []string{stmt}
}

func (r *Renderer) RedefineIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string {
	stmts := r.DropIndex(tables.Previous, indexes.Previous)
	return append(stmts, r.CreateIndex(tables.Next, indexes.Next)...)
}

func (r *Renderer) AddForeignKey(table *types.Table, fk *types.ForeignKey) []string {
	var b strings.Builder
	b.WriteString("ALTER TABLE " + quote(table.Name) + " ADD ")
	if fk.ConstraintName != "" {
		b.WriteString("CONSTRAINT " + quote(fk.ConstraintName) + " ")
	}
	b.WriteString("FOREIGN KEY (" + quoteJoin(fk.Columns) + ")")
	b.WriteString(" REFERENCES " + quote(fk.ReferencedTable) + "(" + quoteJoin(fk.ReferencedColumns) + ")")
	b.WriteString(" ON DELETE " + string(fk.OnDelete))
	b.WriteString(" ON UPDATE " + string(fk.OnUpdate))
	return []string{b.String()}
}

func (r *Renderer) DropForeignKey(table *types.Table, fk *types.ForeignKey) []string {
	if fk.ConstraintName == "" {
		return nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", quote(table.Name), quote(fk.ConstraintName))}
}

// CreateEnum renders nothing: the variants live in the column definitions.
func (r *Renderer) CreateEnum(*types.Enum) []string {
	return nil
}

// DropEnum renders nothing: dropping the columns drops the type with them.
func (r *Renderer) DropEnum(*types.Enum) []string {
	return nil
}

// AlterEnum restates the definition of every column using the enum, which
// carries the new variant list inline.
func (r *Renderer) AlterEnum(schemas steps.Pair[*types.Schema], enums steps.Pair[*types.Enum], _, _ []string) []string {
	var stmts []string
	for ti := range schemas.Next.Tables {
		table := &schemas.Next.Tables[ti]
		for ci := range table.Columns {
			column := &table.Columns[ci]
			if column.Type.Family != types.FamilyEnum || column.Type.NativeType != enums.Next.Name {
				continue
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY %s",
				quote(table.Name), r.columnDefinition(schemas.Next, column)))
		}
	}
	return stmts
}

func (r *Renderer) columnDefinition(schema *types.Schema, column *types.Column) string {
	def := quote(column.Name) + " " + r.columnTypeSQL(schema, column)
	if column.Type.Arity == types.ArityRequired {
		def += " NOT NULL"
	}
	if column.AutoIncrement {
		def += " AUTO_INCREMENT"
	} else if column.Default != nil {
		def += " DEFAULT " + defaultSQL(column.Default)
	}
	return def
}

func (r *Renderer) columnTypeSQL(schema *types.Schema, column *types.Column) string {
	switch column.Type.Family {
	case types.FamilyInt:
		return "INTEGER"
	case types.FamilyBigInt:
		return "BIGINT"
	case types.FamilyFloat:
		return "DOUBLE"
	case types.FamilyDecimal:
		return "DECIMAL(65,30)"
	case types.FamilyBoolean:
		return "BOOLEAN"
	case types.FamilyString:
		return "VARCHAR(191)"
	case types.FamilyDateTime:
		return "DATETIME(3)"
	case types.FamilyBinary:
		return "LONGBLOB"
	case types.FamilyJSON:
		return "JSON"
	case types.FamilyUUID:
		return "CHAR(36)"
	case types.FamilyEnum:
		return enumTypeSQL(schema, column.Type.NativeType)
	default:
		return column.Type.FullDataType
	}
}

// enumTypeSQL expands a schema-level enum reference into the inline
// ENUM(...) column type.
func enumTypeSQL(schema *types.Schema, name string) string {
	for i := range schema.Enums {
		if schema.Enums[i].Name != name {
			continue
		}
		quoted := make([]string, len(schema.Enums[i].Values))
		for j, value := range schema.Enums[i].Values {
			quoted[j] = literal(value)
		}
		return "ENUM(" + strings.Join(quoted, ", ") + ")"
	}
	return "VARCHAR(191)"
}

func defaultSQL(def *types.DefaultValue) string {
	switch def.Kind {
	case types.DefaultNow:
		return "CURRENT_TIMESTAMP(3)"
	case types.DefaultValueKind:
		switch def.Value {
		case "true":
			return "1"
		case "false":
			return "0"
		}
		if isNumeric(def.Value) {
			return def.Value
		}
		return literal(def.Value)
	default:
		return "(" + def.Value + ")"
	}
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
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
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
