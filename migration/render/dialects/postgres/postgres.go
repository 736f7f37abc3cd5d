// Package postgres renders migration steps into PostgreSQL SQL.
package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/stokaro/seshat/core/platform"
	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/steps"
)

// Renderer renders steps for PostgreSQL.
type Renderer struct{}

// New creates a PostgreSQL renderer.
func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Name() string {
	return platform.Postgres
}

func (r *Renderer) CreateTable(schema *types.Schema, table *types.Table) []string {
	var defs []string
	for i := range table.Columns {
		defs = append(defs, r.columnDefinition(&table.Columns[i]))
	}
	if pk := table.PrimaryKey; pk != nil {
		constraint := "PRIMARY KEY (" + quoteJoin(pk.Columns) + ")"
		if pk.ConstraintName != "" {
			constraint = "CONSTRAINT " + pq.QuoteIdentifier(pk.ConstraintName) + " " + constraint
		}
		defs = append(defs, constraint)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)",
		pq.QuoteIdentifier(table.Name), strings.Join(defs, ",\n    "))
	return []string{stmt}
}

func (r *Renderer) DropTable(table *types.Table) []string {
	return []string{"DROP TABLE " + pq.QuoteIdentifier(table.Name)}
}

func (r *Renderer) AlterTable(_ steps.Pair[*types.Schema], tables steps.Pair[*types.Table], changes []render.ColumnChange) []string {
	var clauses []string
	for _, change := range changes {
		switch change.Kind {
		case render.ChangeAddColumn:
			clauses = append(clauses, "ADD COLUMN "+r.columnDefinition(change.Columns.Next))
		case render.ChangeDropColumn:
			clauses = append(clauses, "DROP COLUMN "+pq.QuoteIdentifier(change.Columns.Previous.Name))
		case render.ChangeAlterColumn:
			clauses = append(clauses, r.alterColumnClauses(change.Columns)...)
		}
	}
	if len(clauses) == 0 {
		return nil
	}

	stmt := "ALTER TABLE " + pq.QuoteIdentifier(tables.Next.Name) + " " + strings.Join(clauses, ",\n")
	return []string{stmt}
}

// alterColumnClauses emits one sub-clause per changed column property, so an
// unchanged default is not re-stated.
func (r *Renderer) alterColumnClauses(columns steps.Pair[*types.Column]) []string {
	previous, next := columns.Previous, columns.Next
	name := pq.QuoteIdentifier(next.Name)

	var clauses []string
	if previous.Type != next.Type {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DATA TYPE %s", name, r.columnTypeSQL(next)))
	}
	if previous.Type.Arity != next.Type.Arity {
		if next.Type.Arity == types.ArityRequired {
			clauses = append(clauses, "ALTER COLUMN "+name+" SET NOT NULL")
		} else {
			clauses = append(clauses, "ALTER COLUMN "+name+" DROP NOT NULL")
		}
	}
	if defaultSQL(previous.Default) != defaultSQL(next.Default) {
		if next.Default == nil {
			clauses = append(clauses, "ALTER COLUMN "+name+" DROP DEFAULT")
		} else {
			clauses = append(clauses, "ALTER COLUMN "+name+" SET DEFAULT "+defaultSQL(next.Default))
		}
	}
	return clauses
}

// RedefineTables is rendered as drop-then-create. PostgreSQL can alter most
// things in place, so a redefine step arriving here means the change is not
// expressible as ALTERs at all.
func (r *Renderer) RedefineTables(schemas steps.Pair[*types.Schema], tables []steps.Pair[*types.Table]) []string {
	var stmts []string
	for _, pair := range tables {
		stmts = append(stmts, r.DropTable(pair.Previous)...)
		stmts = append(stmts, r.CreateTable(schemas.Next, pair.Next)...)
	}
	return stmts
}

func (r *Renderer) CreateIndex(table *types.Table, index *types.Index) []string {
	unique := ""
	if index.Type == types.IndexUnique {
		unique = "UNIQUE "
	}
	using := ""
	if index.Algorithm != "" && index.Algorithm != "btree" {
		using = " USING " + index.Algorithm
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s%s(%s)",
		unique, pq.QuoteIdentifier(index.Name), pq.QuoteIdentifier(table.Name), using, quoteJoin(index.Columns))
	return []string{stmt}
}

func (r *Renderer) DropIndex(_ *types.Table, index *types.Index) []string {
	return []string{"DROP INDEX " + pq.QuoteIdentifier(index.Name)}
}

func (r *Renderer) AlterIndex(_ steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string {
	stmt := fmt.Sprintf("ALTER INDEX %s RENAME TO %s",
		pq.QuoteIdentifier(indexes.Previous.Name), pq.QuoteIdentifier(indexes.Next.Name))
	return []string{stmt}
}

func (r *Renderer) RedefineIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string {
	stmts := r.DropIndex(tables.Previous, indexes.Previous)
	return append(stmts, r.CreateIndex(tables.Next, indexes.Next)...)
}

func (r *Renderer) AddForeignKey(table *types.Table, fk *types.ForeignKey) []string {
	var b strings.Builder
	b.WriteString("ALTER TABLE " + pq.QuoteIdentifier(table.Name) + " ADD ")
	if fk.ConstraintName != "" {
		b.WriteString("CONSTRAINT " + pq.QuoteIdentifier(fk.ConstraintName) + " ")
	}
	b.WriteString("FOREIGN KEY (" + quoteJoin(fk.Columns) + ")")
	b.WriteString(" REFERENCES " + pq.QuoteIdentifier(fk.ReferencedTable) + "(" + quoteJoin(fk.ReferencedColumns) + ")")
	b.WriteString(" ON DELETE " + string(fk.OnDelete))
	b.WriteString(" ON UPDATE " + string(fk.OnUpdate))
	return []string{b.String()}
}

func (r *Renderer) DropForeignKey(table *types.Table, fk *types.ForeignKey) []string {
	if fk.ConstraintName == "" {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		pq.QuoteIdentifier(table.Name), pq.QuoteIdentifier(fk.ConstraintName))
	return []string{stmt}
}

func (r *Renderer) CreateEnum(enum *types.Enum) []string {
	stmt := fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)",
		pq.QuoteIdentifier(enum.Name), literalJoin(enum.Values))
	return []string{stmt}
}

func (r *Renderer) DropEnum(enum *types.Enum) []string {
	return []string{"DROP TYPE " + pq.QuoteIdentifier(enum.Name)}
}

// AlterEnum adds variants with ALTER TYPE ADD VALUE. Dropping a variant has
// no direct statement, so the type is rebuilt: rename aside, create the new
// shape, migrate every column using it, drop the old type.
func (r *Renderer) AlterEnum(schemas steps.Pair[*types.Schema], enums steps.Pair[*types.Enum], created, dropped []string) []string {
	if len(dropped) == 0 {
		var stmts []string
		for _, variant := range created {
			stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ADD VALUE %s",
				pq.QuoteIdentifier(enums.Next.Name), pq.QuoteLiteral(variant)))
		}
		return stmts
	}

	oldName := enums.Previous.Name + "_old"
	name := pq.QuoteIdentifier(enums.Next.Name)

	stmts := []string{
		fmt.Sprintf("ALTER TYPE %s RENAME TO %s", pq.QuoteIdentifier(enums.Previous.Name), pq.QuoteIdentifier(oldName)),
		fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", name, literalJoin(enums.Next.Values)),
	}

	for ti := range schemas.Next.Tables {
		table := &schemas.Next.Tables[ti]
		for ci := range table.Columns {
			column := &table.Columns[ci]
			if column.Type.Family != types.FamilyEnum || column.Type.NativeType != enums.Next.Name {
				continue
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DATA TYPE %s USING (%s::text::%s)",
				pq.QuoteIdentifier(table.Name), pq.QuoteIdentifier(column.Name), name,
				pq.QuoteIdentifier(column.Name), name))
		}
	}

	stmts = append(stmts, "DROP TYPE "+pq.QuoteIdentifier(oldName))
	return stmts
}

func (r *Renderer) columnDefinition(column *types.Column) string {
	def := pq.QuoteIdentifier(column.Name) + " " + r.columnTypeSQL(column)
	if column.Type.Arity == types.ArityRequired {
		def += " NOT NULL"
	}
	if column.Default != nil && !column.AutoIncrement {
		def += " DEFAULT " + defaultSQL(column.Default)
	}
	return def
}

func (r *Renderer) columnTypeSQL(column *types.Column) string {
	var base string
	switch column.Type.Family {
	case types.FamilyInt:
		base = "INTEGER"
		if column.AutoIncrement {
			base = "SERIAL"
		}
	case types.FamilyBigInt:
		base = "BIGINT"
		if column.AutoIncrement {
			base = "BIGSERIAL"
		}
	case types.FamilyFloat:
		base = "DOUBLE PRECISION"
	case types.FamilyDecimal:
		base = "DECIMAL(65,30)"
	case types.FamilyBoolean:
		base = "BOOLEAN"
	case types.FamilyString:
		base = "TEXT"
	case types.FamilyDateTime:
		base = "TIMESTAMP(3)"
	case types.FamilyBinary:
		base = "BYTEA"
	case types.FamilyJSON:
		base = "JSONB"
	case types.FamilyUUID:
		base = "UUID"
	case types.FamilyEnum:
		base = pq.QuoteIdentifier(column.Type.NativeType)
	default:
		base = column.Type.FullDataType
	}

	if column.Type.Arity == types.ArityList {
		base += "[]"
	}
	return base
}

func defaultSQL(def *types.DefaultValue) string {
	if def == nil {
		return ""
	}
	switch def.Kind {
	case types.DefaultNow:
		return "CURRENT_TIMESTAMP"
	case types.DefaultValueKind:
		switch def.Value {
		case "true", "false":
			return def.Value
		}
		if isNumeric(def.Value) {
			return def.Value
		}
		return pq.QuoteLiteral(def.Value)
	default:
		return def.Value
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

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = pq.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

func literalJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, value := range values {
		quoted[i] = pq.QuoteLiteral(value)
	}
	return strings.Join(quoted, ", ")
}
