// Package render turns migration steps into dialect-correct SQL statements.
//
// A Dialect is a closed variant: one implementation per supported database
// product, each providing the full fixed set of per-step render operations.
// RenderStep resolves a step's positions against the migration's schema pair
// and dispatches to the dialect. Output statement order follows step order;
// topologically safe step ordering is a precondition established upstream and
// not re-validated here.
package render

import (
	"fmt"

	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/steps"
)

// ChangeKind tags one resolved column-level change.
type ChangeKind int

const (
	ChangeAddColumn ChangeKind = iota
	ChangeDropColumn
	ChangeAlterColumn
)

// ColumnChange is a column-level change with its positions resolved. The
// Previous side is nil for additions, the Next side is nil for drops.
type ColumnChange struct {
	Kind    ChangeKind
	Columns steps.Pair[*types.Column]
}

// Dialect renders each step variant into zero or more SQL statements. An
// operation the dialect cannot express returns no statements; the applier
// treats such steps as empty and skips them.
type Dialect interface {
	Name() string

	CreateTable(schema *types.Schema, table *types.Table) []string
	DropTable(table *types.Table) []string
	AlterTable(schemas steps.Pair[*types.Schema], tables steps.Pair[*types.Table], changes []ColumnChange) []string
	RedefineTables(schemas steps.Pair[*types.Schema], tables []steps.Pair[*types.Table]) []string

	CreateIndex(table *types.Table, index *types.Index) []string
	DropIndex(table *types.Table, index *types.Index) []string
	AlterIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string
	RedefineIndex(tables steps.Pair[*types.Table], indexes steps.Pair[*types.Index]) []string

	AddForeignKey(table *types.Table, fk *types.ForeignKey) []string
	DropForeignKey(table *types.Table, fk *types.ForeignKey) []string

	CreateEnum(enum *types.Enum) []string
	DropEnum(enum *types.Enum) []string
	AlterEnum(schemas steps.Pair[*types.Schema], enums steps.Pair[*types.Enum], created, dropped []string) []string
}

// RenderStep resolves one step against the migration's schema pair and
// renders it with the given dialect.
func RenderStep(d Dialect, m *steps.Migration, step steps.Step) ([]string, error) {
	schemas := m.Schemas()

	switch s := step.(type) {
	case steps.CreateTable:
		table, err := tableAt(m.After, s.Table)
		if err != nil {
			return nil, err
		}
		return d.CreateTable(m.After, table), nil

	case steps.DropTable:
		table, err := tableAt(m.Before, s.Table)
		if err != nil {
			return nil, err
		}
		return d.DropTable(table), nil

	case steps.AlterTable:
		tables, err := tablePair(schemas, s.Table)
		if err != nil {
			return nil, err
		}
		changes, err := resolveChanges(tables, s.Changes)
		if err != nil {
			return nil, err
		}
		return d.AlterTable(schemas, tables, changes), nil

	case steps.RedefineTables:
		var tables []steps.Pair[*types.Table]
		for _, pair := range s.Tables {
			resolved, err := tablePair(schemas, pair)
			if err != nil {
				return nil, err
			}
			tables = append(tables, resolved)
		}
		return d.RedefineTables(schemas, tables), nil

	case steps.CreateIndex:
		table, err := tableAt(m.After, s.Table)
		if err != nil {
			return nil, err
		}
		index, err := indexAt(table, s.Index)
		if err != nil {
			return nil, err
		}
		return d.CreateIndex(table, index), nil

	case steps.DropIndex:
		table, err := tableAt(m.Before, s.Table)
		if err != nil {
			return nil, err
		}
		index, err := indexAt(table, s.Index)
		if err != nil {
			return nil, err
		}
		return d.DropIndex(table, index), nil

	case steps.AlterIndex:
		tables, indexes, err := indexPair(schemas, s.Table, s.Index)
		if err != nil {
			return nil, err
		}
		return d.AlterIndex(tables, indexes), nil

	case steps.RedefineIndex:
		tables, indexes, err := indexPair(schemas, s.Table, s.Index)
		if err != nil {
			return nil, err
		}
		return d.RedefineIndex(tables, indexes), nil

	case steps.AddForeignKey:
		table, err := tableAt(m.After, s.Table)
		if err != nil {
			return nil, err
		}
		fk, err := foreignKeyAt(table, s.ForeignKey)
		if err != nil {
			return nil, err
		}
		return d.AddForeignKey(table, fk), nil

	case steps.DropForeignKey:
		table, err := tableAt(m.Before, s.Table)
		if err != nil {
			return nil, err
		}
		fk, err := foreignKeyAt(table, s.ForeignKey)
		if err != nil {
			return nil, err
		}
		return d.DropForeignKey(table, fk), nil

	case steps.CreateEnum:
		enum, err := enumAt(m.After, s.Enum)
		if err != nil {
			return nil, err
		}
		return d.CreateEnum(enum), nil

	case steps.DropEnum:
		enum, err := enumAt(m.Before, s.Enum)
		if err != nil {
			return nil, err
		}
		return d.DropEnum(enum), nil

	case steps.AlterEnum:
		previous, err := enumAt(m.Before, s.Enum.Previous)
		if err != nil {
			return nil, err
		}
		next, err := enumAt(m.After, s.Enum.Next)
		if err != nil {
			return nil, err
		}
		return d.AlterEnum(schemas, steps.NewPair(previous, next), s.CreatedVariants, s.DroppedVariants), nil

	default:
		return nil, fmt.Errorf("unknown migration step %T", step)
	}
}

func tableAt(schema *types.Schema, idx int) (*types.Table, error) {
	if idx < 0 || idx >= len(schema.Tables) {
		return nil, fmt.Errorf("table position %d out of range (%d tables)", idx, len(schema.Tables))
	}
	return schema.TableAt(idx), nil
}

func enumAt(schema *types.Schema, idx int) (*types.Enum, error) {
	if idx < 0 || idx >= len(schema.Enums) {
		return nil, fmt.Errorf("enum position %d out of range (%d enums)", idx, len(schema.Enums))
	}
	return schema.EnumAt(idx), nil
}

func indexAt(table *types.Table, idx int) (*types.Index, error) {
	if idx < 0 || idx >= len(table.Indexes) {
		return nil, fmt.Errorf("index position %d out of range on table %q", idx, table.Name)
	}
	return table.IndexAt(idx), nil
}

func foreignKeyAt(table *types.Table, idx int) (*types.ForeignKey, error) {
	if idx < 0 || idx >= len(table.ForeignKeys) {
		return nil, fmt.Errorf("foreign key position %d out of range on table %q", idx, table.Name)
	}
	return table.ForeignKeyAt(idx), nil
}

func columnAt(table *types.Table, idx int) (*types.Column, error) {
	if idx < 0 || idx >= len(table.Columns) {
		return nil, fmt.Errorf("column position %d out of range on table %q", idx, table.Name)
	}
	return table.ColumnAt(idx), nil
}

func tablePair(schemas steps.Pair[*types.Schema], pair steps.Pair[int]) (steps.Pair[*types.Table], error) {
	previous, err := tableAt(schemas.Previous, pair.Previous)
	if err != nil {
		return steps.Pair[*types.Table]{}, err
	}
	next, err := tableAt(schemas.Next, pair.Next)
	if err != nil {
		return steps.Pair[*types.Table]{}, err
	}
	return steps.NewPair(previous, next), nil
}

func indexPair(schemas steps.Pair[*types.Schema], table, index steps.Pair[int]) (steps.Pair[*types.Table], steps.Pair[*types.Index], error) {
	tables, err := tablePair(schemas, table)
	if err != nil {
		return steps.Pair[*types.Table]{}, steps.Pair[*types.Index]{}, err
	}
	previous, err := indexAt(tables.Previous, index.Previous)
	if err != nil {
		return steps.Pair[*types.Table]{}, steps.Pair[*types.Index]{}, err
	}
	next, err := indexAt(tables.Next, index.Next)
	if err != nil {
		return steps.Pair[*types.Table]{}, steps.Pair[*types.Index]{}, err
	}
	return tables, steps.NewPair(previous, next), nil
}

func resolveChanges(tables steps.Pair[*types.Table], changes []steps.TableChange) ([]ColumnChange, error) {
	var resolved []ColumnChange
	for _, change := range changes {
		switch c := change.(type) {
		case steps.AddColumn:
			column, err := columnAt(tables.Next, c.Column)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, ColumnChange{
				Kind:    ChangeAddColumn,
				Columns: steps.NewPair[*types.Column](nil, column),
			})
		case steps.DropColumn:
			column, err := columnAt(tables.Previous, c.Column)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, ColumnChange{
				Kind:    ChangeDropColumn,
				Columns: steps.NewPair[*types.Column](column, nil),
			})
		case steps.AlterColumn:
			previous, err := columnAt(tables.Previous, c.Column.Previous)
			if err != nil {
				return nil, err
			}
			next, err := columnAt(tables.Next, c.Column.Next)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, ColumnChange{
				Kind:    ChangeAlterColumn,
				Columns: steps.NewPair(previous, next),
			})
		default:
			return nil, fmt.Errorf("unknown table change %T", change)
		}
	}
	return resolved, nil
}
