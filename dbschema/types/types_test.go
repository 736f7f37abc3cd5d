package types_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/dbschema/types"
)

func TestPurgeDanglingForeignKeys(t *testing.T) {
	c := qt.New(t)

	tables := []types.Table{
		{
			Name: "posts",
			ForeignKeys: []types.ForeignKey{
				{Columns: []string{"author_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}},
				{Columns: []string{"ghost_id"}, ReferencedTable: "ghosts", ReferencedColumns: []string{"id"}},
			},
		},
		{
			Name: "users",
			ForeignKeys: []types.ForeignKey{
				{Columns: []string{"shadow_id"}, ReferencedTable: "shadows", ReferencedColumns: []string{"id"}},
			},
		},
	}

	types.PurgeDanglingForeignKeys(tables)

	c.Assert(tables[0].ForeignKeys, qt.HasLen, 1)
	c.Assert(tables[0].ForeignKeys[0].ReferencedTable, qt.Equals, "users")
	c.Assert(tables[1].ForeignKeys, qt.HasLen, 0)

	// A second pass is a no-op.
	types.PurgeDanglingForeignKeys(tables)
	c.Assert(tables[0].ForeignKeys, qt.HasLen, 1)
	c.Assert(tables[1].ForeignKeys, qt.HasLen, 0)
}

func TestSchema_PositionalAccessors(t *testing.T) {
	c := qt.New(t)

	schema := &types.Schema{
		Tables: []types.Table{
			{Name: "users", Columns: []types.Column{{Name: "id"}, {Name: "email"}}},
			{Name: "posts"},
		},
		Enums: []types.Enum{{Name: "color", Values: []string{"red", "green"}}},
	}

	c.Assert(schema.TableAt(1).Name, qt.Equals, "posts")
	c.Assert(schema.EnumAt(0).Values, qt.DeepEquals, []string{"red", "green"})

	idx, ok := schema.TableIndex("posts")
	c.Assert(ok, qt.IsTrue)
	c.Assert(idx, qt.Equals, 1)

	_, ok = schema.TableIndex("missing")
	c.Assert(ok, qt.IsFalse)

	users := schema.TableAt(0)
	c.Assert(users.ColumnAt(1).Name, qt.Equals, "email")

	colIdx, ok := users.ColumnIndex("email")
	c.Assert(ok, qt.IsTrue)
	c.Assert(colIdx, qt.Equals, 1)
}

func TestDefaultValueConstructors(t *testing.T) {
	c := qt.New(t)

	c.Assert(types.NewValueDefault("42"), qt.DeepEquals, &types.DefaultValue{Kind: types.DefaultValueKind, Value: "42"})
	c.Assert(types.NewNowDefault(), qt.DeepEquals, &types.DefaultValue{Kind: types.DefaultNow})
	c.Assert(types.NewDBGeneratedDefault("uuid()"), qt.DeepEquals, &types.DefaultValue{Kind: types.DefaultDBGenerated, Value: "uuid()"})
}
