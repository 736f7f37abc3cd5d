package mysql

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/dbschema/shell"
	"github.com/stokaro/seshat/dbschema/types"
)

// stubShell answers every query with the same canned result.
type stubShell struct {
	rs *shell.Result
}

func (s *stubShell) Query(context.Context, string, []string) (shell.ResultSet, error) {
	return s.rs, nil
}

func (s *stubShell) RawCmd(context.Context, string) error {
	return nil
}

func TestDescribeColumns_InlineEnumSynthesis(t *testing.T) {
	c := qt.New(t)

	stub := &stubShell{rs: shell.NewResult(
		[]string{"column_name", "data_type", "column_type", "is_nullable", "column_default", "extra"},
		[][]any{
			{"id", "int", "int(11)", "NO", nil, "auto_increment"},
			{"size", "enum", "enum('small','large')", "NO", "small", ""},
		},
	)}

	columns, enums, err := NewDescriber(stub, "shop").describeColumns(context.Background(), "shirts")
	c.Assert(err, qt.IsNil)
	c.Assert(columns, qt.HasLen, 2)

	c.Assert(columns[0].AutoIncrement, qt.IsTrue)
	c.Assert(columns[0].Default, qt.IsNil)

	// The inline enum becomes a schema-level enum named table_column, and the
	// column points at it through its native type.
	c.Assert(columns[1].Type.Family, qt.Equals, types.FamilyEnum)
	c.Assert(columns[1].Type.NativeType, qt.Equals, "shirts_size")
	c.Assert(columns[1].Default, qt.DeepEquals, types.NewValueDefault("small"))
	c.Assert(enums, qt.DeepEquals, []types.Enum{{Name: "shirts_size", Values: []string{"small", "large"}}})
}

func TestDescribeIndexes(t *testing.T) {
	c := qt.New(t)

	stub := &stubShell{rs: shell.NewResult(
		[]string{"index_name", "column_name", "non_unique", "index_type"},
		[][]any{
			{"idx_expr", "a", int64(1), "BTREE"},
			{"idx_expr", nil, int64(1), "BTREE"},
			{"idx_expr", "c", int64(1), "BTREE"},
			{"idx_title", "title", int64(1), "FULLTEXT"},
			{"idx_email", "email", int64(0), "BTREE"},
		},
	)}

	indexes, err := NewDescriber(stub, "shop").describeIndexes(context.Background(), "users")
	c.Assert(err, qt.IsNil)
	c.Assert(indexes, qt.HasLen, 3)

	// The expression member truncates the column list, keeping only the
	// prefix before it.
	c.Assert(indexes[0].Name, qt.Equals, "idx_expr")
	c.Assert(indexes[0].Columns, qt.DeepEquals, []string{"a"})
	c.Assert(indexes[0].Type, qt.Equals, types.IndexNormal)
	c.Assert(indexes[0].Algorithm, qt.Equals, "btree")

	c.Assert(indexes[1].Type, qt.Equals, types.IndexFulltext)
	c.Assert(indexes[2].Type, qt.Equals, types.IndexUnique)
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		name     string
		dataType string
		fullType string
		expected types.ColumnFamily
	}{
		{"tinyint(1) is boolean", "tinyint", "tinyint(1)", types.FamilyBoolean},
		{"wider tinyint is int", "tinyint", "tinyint(4)", types.FamilyInt},
		{"int", "int", "int(11)", types.FamilyInt},
		{"bigint", "bigint", "bigint(20)", types.FamilyBigInt},
		{"double", "double", "double", types.FamilyFloat},
		{"decimal", "decimal", "decimal(65,30)", types.FamilyDecimal},
		{"enum", "enum", "enum('a','b')", types.FamilyEnum},
		{"json", "json", "json", types.FamilyJSON},
		{"varchar", "varchar", "varchar(191)", types.FamilyString},
		{"longtext", "longtext", "longtext", types.FamilyString},
		{"longblob", "longblob", "longblob", types.FamilyBinary},
		{"datetime", "datetime", "datetime(3)", types.FamilyDateTime},
		{"geometry", "geometry", "geometry", types.FamilyUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			tpe := columnType(tt.dataType, tt.fullType, types.ArityRequired)
			c.Assert(tpe.Family, qt.Equals, tt.expected)
			c.Assert(tpe.FullDataType, qt.Equals, tt.fullType)
		})
	}
}

func TestParseEnumVariants(t *testing.T) {
	tests := []struct {
		fullType string
		expected []string
	}{
		{"enum('small','medium','large')", []string{"small", "medium", "large"}},
		{"enum('it''s')", []string{"it's"}},
		{"not an enum", nil},
	}

	for _, tt := range tests {
		t.Run(tt.fullType, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(parseEnumVariants(tt.fullType), qt.DeepEquals, tt.expected)
		})
	}
}

func TestParseDefaultValue(t *testing.T) {
	tests := []struct {
		name     string
		family   types.ColumnFamily
		raw      string
		extra    string
		expected *types.DefaultValue
	}{
		{"null literal", types.FamilyString, "NULL", "", nil},
		{"string", types.FamilyString, "hello", "", types.NewValueDefault("hello")},
		{"integer", types.FamilyInt, "42", "", types.NewValueDefault("42")},
		{"boolean zero", types.FamilyBoolean, "0", "", types.NewValueDefault("false")},
		{"boolean one", types.FamilyBoolean, "1", "", types.NewValueDefault("true")},
		{"current_timestamp", types.FamilyDateTime, "CURRENT_TIMESTAMP", "", types.NewNowDefault()},
		{"current_timestamp(3)", types.FamilyDateTime, "CURRENT_TIMESTAMP(3)", "", types.NewDBGeneratedDefault("CURRENT_TIMESTAMP(3)")},
		{"generated now", types.FamilyDateTime, "now()", "DEFAULT_GENERATED", types.NewNowDefault()},
		{"generated expression", types.FamilyString, "(uuid())", "DEFAULT_GENERATED", types.NewDBGeneratedDefault("(uuid())")},
		{"binary default", types.FamilyBinary, "0xFF", "", types.NewDBGeneratedDefault("0xFF")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(parseDefaultValue(tt.family, tt.raw, tt.extra), qt.DeepEquals, tt.expected)
		})
	}
}
