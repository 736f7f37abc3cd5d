// Package steps models a migration as an ordered list of typed, positional
// structural changes over a frozen pair of schema snapshots.
//
// Steps carry positions into the (before, after) schema pair, never copies of
// the entities. A renderer resolving a step always sees the authoritative
// final schema state, and a step list is re-derivable deterministically from
// the same pair. Names are not used for resolution because they are not
// unique across a diff that includes renames.
package steps

import (
	"github.com/stokaro/seshat/dbschema/types"
)

// Pair holds the previous and next value of something that exists on both
// sides of a migration.
type Pair[T any] struct {
	Previous T `json:"previous"`
	Next     T `json:"next"`
}

// NewPair builds a Pair from its two sides.
func NewPair[T any](previous, next T) Pair[T] {
	return Pair[T]{Previous: previous, Next: next}
}

// Migration is an ordered step list over a frozen schema pair. Before is the
// introspected state, After the desired state; both are immutable for the
// migration's lifetime.
type Migration struct {
	Before *types.Schema `json:"before"`
	After  *types.Schema `json:"after"`
	Steps  []Step        `json:"-"`
}

// Schemas returns the schema pair steps resolve against.
func (m *Migration) Schemas() Pair[*types.Schema] {
	return NewPair(m.Before, m.After)
}

// IsEmpty reports whether the migration contains no steps.
func (m *Migration) IsEmpty() bool {
	return len(m.Steps) == 0
}

// Step is one atomic structural change. The variant set is closed; renderers
// switch over it exhaustively.
type Step interface {
	// Description returns the stable human-readable variant name used in
	// script markers.
	Description() string

	isStep()
}

// CreateTable creates the table at the given position in the next schema.
type CreateTable struct {
	Table int `json:"table"`
}

func (CreateTable) Description() string { return "CreateTable" }
func (CreateTable) isStep()             {}

// DropTable drops the table at the given position in the previous schema.
type DropTable struct {
	Table int `json:"table"`
}

func (DropTable) Description() string { return "DropTable" }
func (DropTable) isStep()             {}

// AlterTable changes columns of a table in place. The table position is a
// pair because the table exists on both sides.
type AlterTable struct {
	Table   Pair[int]     `json:"table"`
	Changes []TableChange `json:"changes"`
}

func (AlterTable) Description() string { return "AlterTable" }
func (AlterTable) isStep()             {}

// TableChange is one column-level change within an AlterTable step.
type TableChange interface {
	isTableChange()
}

// AddColumn adds the column at the given position in the next table.
type AddColumn struct {
	Column int `json:"column"`
}

func (AddColumn) isTableChange() {}

// DropColumn drops the column at the given position in the previous table.
type DropColumn struct {
	Column int `json:"column"`
}

func (DropColumn) isTableChange() {}

// AlterColumn changes a column's type, arity or default in place.
type AlterColumn struct {
	Column Pair[int] `json:"column"`
}

func (AlterColumn) isTableChange() {}

// RedefineTables rebuilds tables whose required changes cannot be expressed
// in place on the target dialect. Each pair names the table's position on
// both sides.
type RedefineTables struct {
	Tables []Pair[int] `json:"tables"`
}

func (RedefineTables) Description() string { return "RedefineTables" }
func (RedefineTables) isStep()             {}

// CreateIndex creates an index on a table in the next schema.
type CreateIndex struct {
	Table int `json:"table"`
	Index int `json:"index"`
}

func (CreateIndex) Description() string { return "CreateIndex" }
func (CreateIndex) isStep()             {}

// DropIndex drops an index from a table in the previous schema.
type DropIndex struct {
	Table int `json:"table"`
	Index int `json:"index"`
}

func (DropIndex) Description() string { return "DropIndex" }
func (DropIndex) isStep()             {}

// AlterIndex changes an index, typically a rename, on dialects that support
// it in place.
type AlterIndex struct {
	Table Pair[int] `json:"table"`
	Index Pair[int] `json:"index"`
}

func (AlterIndex) Description() string { return "AlterIndex" }
func (AlterIndex) isStep()             {}

// RedefineIndex drops and recreates an index where in-place alteration is
// unsupported.
type RedefineIndex struct {
	Table Pair[int] `json:"table"`
	Index Pair[int] `json:"index"`
}

func (RedefineIndex) Description() string { return "RedefineIndex" }
func (RedefineIndex) isStep()             {}

// AddForeignKey adds a foreign key to a table in the next schema.
type AddForeignKey struct {
	Table      int `json:"table"`
	ForeignKey int `json:"foreign_key"`
}

func (AddForeignKey) Description() string { return "AddForeignKey" }
func (AddForeignKey) isStep()             {}

// DropForeignKey drops a foreign key from a table in the previous schema.
type DropForeignKey struct {
	Table      int `json:"table"`
	ForeignKey int `json:"foreign_key"`
}

func (DropForeignKey) Description() string { return "DropForeignKey" }
func (DropForeignKey) isStep()             {}

// CreateEnum creates the enum at the given position in the next schema.
type CreateEnum struct {
	Enum int `json:"enum"`
}

func (CreateEnum) Description() string { return "CreateEnum" }
func (CreateEnum) isStep()             {}

// DropEnum drops the enum at the given position in the previous schema.
type DropEnum struct {
	Enum int `json:"enum"`
}

func (DropEnum) Description() string { return "DropEnum" }
func (DropEnum) isStep()             {}

// AlterEnum adds and removes variants of an enum that exists on both sides.
type AlterEnum struct {
	Enum            Pair[int] `json:"enum"`
	CreatedVariants []string  `json:"created_variants"`
	DroppedVariants []string  `json:"dropped_variants"`
}

func (AlterEnum) Description() string { return "AlterEnum" }
func (AlterEnum) isStep()             {}
