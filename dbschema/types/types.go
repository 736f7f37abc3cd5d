// Package types holds the immutable schema snapshot model produced by
// introspection. A Schema is built once per describe call, read many times by
// diffing and rendering, and never mutated after construction.
package types

// Schema is a complete snapshot of a database schema.
type Schema struct {
	Tables           []Table           `json:"tables"`
	Views            []View            `json:"views"`
	Enums            []Enum            `json:"enums"`
	Sequences        []Sequence        `json:"sequences"`
	Procedures       []Procedure       `json:"procedures"`
	UserDefinedTypes []UserDefinedType `json:"user_defined_types"`
}

// TableAt returns the table at the given position. The position must come
// from this schema snapshot; migration steps rely on this.
func (s *Schema) TableAt(idx int) *Table {
	return &s.Tables[idx]
}

// EnumAt returns the enum at the given position.
func (s *Schema) EnumAt(idx int) *Enum {
	return &s.Enums[idx]
}

// TableIndex finds a table position by name.
func (s *Schema) TableIndex(name string) (int, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Table is one table with its columns, indexes, primary key and foreign keys.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	PrimaryKey  *PrimaryKey  `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// ColumnAt returns the column at the given position.
func (t *Table) ColumnAt(idx int) *Column {
	return &t.Columns[idx]
}

// IndexAt returns the index at the given position.
func (t *Table) IndexAt(idx int) *Index {
	return &t.Indexes[idx]
}

// ForeignKeyAt returns the foreign key at the given position.
func (t *Table) ForeignKeyAt(idx int) *ForeignKey {
	return &t.ForeignKeys[idx]
}

// ColumnIndex finds a column position by name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Column is one table column.
type Column struct {
	Name          string        `json:"name"`
	Type          ColumnType    `json:"type"`
	Default       *DefaultValue `json:"default,omitempty"`
	AutoIncrement bool          `json:"auto_increment"`
}

// ColumnType carries the type family, the arity and the raw type string the
// catalog reported.
type ColumnType struct {
	// FullDataType is the type string exactly as the catalog reported it.
	FullDataType string       `json:"full_data_type"`
	Family       ColumnFamily `json:"family"`
	Arity        ColumnArity  `json:"arity"`
	// NativeType is a dialect-specific payload, set when the family alone
	// does not determine the rendered type (precision, length, enum name).
	NativeType string `json:"native_type,omitempty"`
}

// ColumnFamily is the dialect-independent type family of a column.
type ColumnFamily string

const (
	FamilyInt         ColumnFamily = "int"
	FamilyBigInt      ColumnFamily = "bigint"
	FamilyFloat       ColumnFamily = "float"
	FamilyDecimal     ColumnFamily = "decimal"
	FamilyBoolean     ColumnFamily = "boolean"
	FamilyString      ColumnFamily = "string"
	FamilyDateTime    ColumnFamily = "datetime"
	FamilyBinary      ColumnFamily = "binary"
	FamilyJSON        ColumnFamily = "json"
	FamilyUUID        ColumnFamily = "uuid"
	FamilyEnum        ColumnFamily = "enum"
	FamilyUnsupported ColumnFamily = "unsupported"
)

// ColumnArity distinguishes required, nullable and list columns.
type ColumnArity string

const (
	ArityRequired ColumnArity = "required"
	ArityNullable ColumnArity = "nullable"
	ArityList     ColumnArity = "list"
)

// DefaultKind classifies a column default value.
type DefaultKind string

const (
	// DefaultValueKind is a literal value the describer could parse.
	DefaultValueKind DefaultKind = "value"
	// DefaultNow is a current-timestamp default.
	DefaultNow DefaultKind = "now"
	// DefaultDBGenerated is an opaque database-side expression.
	DefaultDBGenerated DefaultKind = "db_generated"
)

// DefaultValue is a classified column default.
type DefaultValue struct {
	Kind DefaultKind `json:"kind"`
	// Value holds the parsed literal for DefaultValueKind, or the raw
	// expression text for DefaultDBGenerated.
	Value string `json:"value,omitempty"`
}

// NewValueDefault builds a literal default.
func NewValueDefault(value string) *DefaultValue {
	return &DefaultValue{Kind: DefaultValueKind, Value: value}
}

// NewNowDefault builds a current-timestamp default.
func NewNowDefault() *DefaultValue {
	return &DefaultValue{Kind: DefaultNow}
}

// NewDBGeneratedDefault builds a database-generated default carrying the raw
// expression.
func NewDBGeneratedDefault(expr string) *DefaultValue {
	return &DefaultValue{Kind: DefaultDBGenerated, Value: expr}
}

// PrimaryKey lists the key columns in key sequence order.
type PrimaryKey struct {
	Columns        []string `json:"columns"`
	Sequence       string   `json:"sequence,omitempty"`
	ConstraintName string   `json:"constraint_name,omitempty"`
}

// ForeignKeyAction is a referential ON DELETE / ON UPDATE action.
type ForeignKeyAction string

const (
	NoAction   ForeignKeyAction = "NO ACTION"
	Restrict   ForeignKeyAction = "RESTRICT"
	Cascade    ForeignKeyAction = "CASCADE"
	SetNull    ForeignKeyAction = "SET NULL"
	SetDefault ForeignKeyAction = "SET DEFAULT"
)

// ForeignKey is one foreign key constraint. Columns and ReferencedColumns are
// ordered by the constraint's column sequence.
type ForeignKey struct {
	ConstraintName    string           `json:"constraint_name,omitempty"`
	Columns           []string         `json:"columns"`
	ReferencedTable   string           `json:"referenced_table"`
	ReferencedColumns []string         `json:"referenced_columns"`
	OnDelete          ForeignKeyAction `json:"on_delete"`
	OnUpdate          ForeignKeyAction `json:"on_update"`
}

// IndexType distinguishes plain, unique and fulltext indexes.
type IndexType string

const (
	IndexNormal   IndexType = "normal"
	IndexUnique   IndexType = "unique"
	IndexFulltext IndexType = "fulltext"
)

// Index is one secondary index. Indexes backing the primary key and partial
// indexes never appear here; the former are represented by the table's
// PrimaryKey, the latter are unsupported and dropped during introspection.
type Index struct {
	Name    string    `json:"name"`
	Type    IndexType `json:"type"`
	Columns []string  `json:"columns"`
	// Algorithm is the storage algorithm (btree, hash, gin, ...) when the
	// catalog reports one.
	Algorithm string `json:"algorithm,omitempty"`
}

// View is a named view with its definition when the catalog exposes it.
type View struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// Enum is a named enum type with its ordered variants.
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Sequence is a standalone sequence.
type Sequence struct {
	Name           string `json:"name"`
	InitialValue   int64  `json:"initial_value"`
	AllocationSize int64  `json:"allocation_size"`
}

// Procedure is a stored procedure or function signature.
type Procedure struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// UserDefinedType is a non-enum user-defined type.
type UserDefinedType struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// Metadata is the light-weight summary some callers fetch instead of a full
// describe.
type Metadata struct {
	TableCount  int   `json:"table_count"`
	SizeInBytes int64 `json:"size_in_bytes"`
}

// PurgeDanglingForeignKeys removes every foreign key whose referenced table
// is not part of the snapshot. Dialects without enforced referential
// integrity can hold such keys; they must never surface downstream. The
// operation is idempotent.
func PurgeDanglingForeignKeys(tables []Table) {
	names := make(map[string]struct{}, len(tables))
	for i := range tables {
		names[tables[i].Name] = struct{}{}
	}

	for i := range tables {
		kept := tables[i].ForeignKeys[:0]
		for _, fk := range tables[i].ForeignKeys {
			if _, ok := names[fk.ReferencedTable]; ok {
				kept = append(kept, fk)
			}
		}
		tables[i].ForeignKeys = kept
	}
}
