package sqlite_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/render/dialects/sqlite"
	"github.com/stokaro/seshat/migration/steps"
)

func TestCreateTable_RowidAlias(t *testing.T) {
	c := qt.New(t)

	table := &types.Table{
		Name: "users",
		Columns: []types.Column{
			{Name: "id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}, AutoIncrement: true},
			{Name: "name", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityRequired}},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
	}

	// The rowid alias is declared inline, so no table-level PRIMARY KEY
	// clause appears.
	stmts := sqlite.New().CreateTable(&types.Schema{}, table)
	c.Assert(stmts, qt.DeepEquals, []string{
		"CREATE TABLE \"users\" (\n" +
			"    \"id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
			"    \"name\" TEXT NOT NULL\n" +
			")",
	})
}

func TestCreateTable_CompositeKeyAndInlineForeignKey(t *testing.T) {
	c := qt.New(t)

	table := &types.Table{
		Name: "memberships",
		Columns: []types.Column{
			{Name: "user_id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}},
			{Name: "group_id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"group_id", "user_id"}},
		ForeignKeys: []types.ForeignKey{{
			Columns:           []string{"user_id"},
			ReferencedTable:   "users",
			ReferencedColumns: []string{"id"},
			OnDelete:          types.Cascade,
			OnUpdate:          types.NoAction,
		}},
	}

	stmts := sqlite.New().CreateTable(&types.Schema{}, table)
	c.Assert(stmts, qt.DeepEquals, []string{
		"CREATE TABLE \"memberships\" (\n" +
			"    \"user_id\" INTEGER NOT NULL,\n" +
			"    \"group_id\" INTEGER NOT NULL,\n" +
			"    PRIMARY KEY (\"group_id\", \"user_id\"),\n" +
			"    FOREIGN KEY (\"user_id\") REFERENCES \"users\" (\"id\") ON DELETE CASCADE ON UPDATE NO ACTION\n" +
			")",
	})
}

func TestAlterTable_PureAdditionsStayInPlace(t *testing.T) {
	c := qt.New(t)

	next := &types.Table{Name: "users", Columns: []types.Column{
		{Name: "email", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityNullable}},
	}}

	stmts := sqlite.New().AlterTable(
		steps.NewPair(&types.Schema{}, &types.Schema{}),
		steps.NewPair(&types.Table{Name: "users"}, next),
		[]render.ColumnChange{
			{Kind: render.ChangeAddColumn, Columns: steps.NewPair[*types.Column](nil, &next.Columns[0])},
		},
	)
	c.Assert(stmts, qt.DeepEquals, []string{`ALTER TABLE "users" ADD COLUMN "email" TEXT`})
}

func TestAlterTable_DropRebuildsTheTable(t *testing.T) {
	c := qt.New(t)

	previous := &types.Table{Name: "users", Columns: []types.Column{
		{Name: "id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}, AutoIncrement: true},
		{Name: "name", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityRequired}},
		{Name: "legacy", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityNullable}},
	}}
	next := &types.Table{
		Name: "users",
		Columns: []types.Column{
			{Name: "id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}, AutoIncrement: true},
			{Name: "name", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityRequired}},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
		Indexes:    []types.Index{{Name: "users_name_key", Type: types.IndexUnique, Columns: []string{"name"}}},
	}

	stmts := sqlite.New().AlterTable(
		steps.NewPair(&types.Schema{}, &types.Schema{}),
		steps.NewPair(previous, next),
		[]render.ColumnChange{
			{Kind: render.ChangeDropColumn, Columns: steps.NewPair[*types.Column](&previous.Columns[2], nil)},
		},
	)
	c.Assert(stmts, qt.DeepEquals, []string{
		"CREATE TABLE \"new_users\" (\n" +
			"    \"id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
			"    \"name\" TEXT NOT NULL\n" +
			")",
		`INSERT INTO "new_users" ("id", "name") SELECT "id", "name" FROM "users"`,
		`DROP TABLE "users"`,
		`ALTER TABLE "new_users" RENAME TO "users"`,
		`CREATE UNIQUE INDEX "users_name_key" ON "users"("name")`,
	})
}

func TestRedefineTables_DisablesForeignKeysAround(t *testing.T) {
	c := qt.New(t)

	previous := &types.Table{Name: "logs", Columns: []types.Column{
		{Name: "id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}},
	}}
	next := &types.Table{Name: "logs", Columns: []types.Column{
		{Name: "id", Type: types.ColumnType{Family: types.FamilyBigInt, Arity: types.ArityRequired}},
	}}

	stmts := sqlite.New().RedefineTables(
		steps.NewPair(&types.Schema{}, &types.Schema{}),
		[]steps.Pair[*types.Table]{steps.NewPair(previous, next)},
	)

	c.Assert(stmts[0], qt.Equals, "PRAGMA foreign_keys=OFF")
	c.Assert(stmts[len(stmts)-1], qt.Equals, "PRAGMA foreign_keys=ON")
	c.Assert(stmts[1:len(stmts)-1], qt.DeepEquals, []string{
		"CREATE TABLE \"new_logs\" (\n    \"id\" INTEGER NOT NULL\n)",
		`INSERT INTO "new_logs" ("id") SELECT "id" FROM "logs"`,
		`DROP TABLE "logs"`,
		`ALTER TABLE "new_logs" RENAME TO "logs"`,
	})
}

func TestAlterIndex_RendersAsRedefine(t *testing.T) {
	c := qt.New(t)

	table := &types.Table{Name: "users"}
	stmts := sqlite.New().AlterIndex(
		steps.NewPair(table, table),
		steps.NewPair(
			&types.Index{Name: "old_name", Columns: []string{"email"}},
			&types.Index{Name: "new_name", Type: types.IndexUnique, Columns: []string{"email"}},
		),
	)
	c.Assert(stmts, qt.DeepEquals, []string{
		`DROP INDEX "old_name"`,
		`CREATE UNIQUE INDEX "new_name" ON "users"("email")`,
	})
}

func TestUnsupportedStepsRenderNothing(t *testing.T) {
	c := qt.New(t)
	r := sqlite.New()

	table := &types.Table{Name: "posts"}
	fk := &types.ForeignKey{Columns: []string{"author_id"}, ReferencedTable: "users"}

	c.Assert(r.AddForeignKey(table, fk), qt.IsNil)
	c.Assert(r.DropForeignKey(table, fk), qt.IsNil)
	c.Assert(r.CreateEnum(&types.Enum{Name: "color"}), qt.IsNil)
	c.Assert(r.DropEnum(&types.Enum{Name: "color"}), qt.IsNil)
	c.Assert(r.AlterEnum(
		steps.NewPair(&types.Schema{}, &types.Schema{}),
		steps.NewPair(&types.Enum{}, &types.Enum{}),
		[]string{"blue"}, nil,
	), qt.IsNil)
}
