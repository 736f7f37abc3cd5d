package mysql_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/core/platform"
	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/render"
	"github.com/stokaro/seshat/migration/render/dialects/mysql"
	"github.com/stokaro/seshat/migration/steps"
)

func TestName(t *testing.T) {
	c := qt.New(t)

	c.Assert(mysql.New().Name(), qt.Equals, platform.MySQL)
	c.Assert(mysql.NewMariaDB().Name(), qt.Equals, platform.MariaDB)
}

func TestCreateTable(t *testing.T) {
	c := qt.New(t)

	schema := &types.Schema{Enums: []types.Enum{{Name: "shirts_size", Values: []string{"small", "large"}}}}
	table := &types.Table{
		Name: "shirts",
		Columns: []types.Column{
			{Name: "id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}, AutoIncrement: true},
			{
				Name:    "size",
				Type:    types.ColumnType{Family: types.FamilyEnum, Arity: types.ArityRequired, NativeType: "shirts_size"},
				Default: types.NewValueDefault("small"),
			},
			{
				Name:    "in_stock",
				Type:    types.ColumnType{Family: types.FamilyBoolean, Arity: types.ArityRequired},
				Default: types.NewValueDefault("true"),
			},
			{
				Name:    "updated_at",
				Type:    types.ColumnType{Family: types.FamilyDateTime, Arity: types.ArityRequired},
				Default: types.NewNowDefault(),
			},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
	}

	stmts := mysql.New().CreateTable(schema, table)
	c.Assert(stmts, qt.DeepEquals, []string{
		"CREATE TABLE `shirts` (\n" +
			"    `id` INTEGER NOT NULL AUTO_INCREMENT,\n" +
			"    `size` ENUM('small', 'large') NOT NULL DEFAULT 'small',\n" +
			"    `in_stock` BOOLEAN NOT NULL DEFAULT 1,\n" +
			"    `updated_at` DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),\n" +
			"    PRIMARY KEY (`id`)\n" +
			")",
	})
}

func TestAlterTable(t *testing.T) {
	c := qt.New(t)

	previous := &types.Table{Name: "users", Columns: []types.Column{
		{Name: "legacy", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityNullable}},
		{Name: "bio", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityNullable}},
	}}
	next := &types.Table{Name: "users", Columns: []types.Column{
		{Name: "bio", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityRequired}},
		{Name: "email", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityRequired}},
	}}

	changes := []render.ColumnChange{
		{Kind: render.ChangeAddColumn, Columns: steps.NewPair[*types.Column](nil, &next.Columns[1])},
		{Kind: render.ChangeDropColumn, Columns: steps.NewPair[*types.Column](&previous.Columns[0], nil)},
		{Kind: render.ChangeAlterColumn, Columns: steps.NewPair(&previous.Columns[1], &next.Columns[0])},
	}

	stmts := mysql.New().AlterTable(
		steps.NewPair(&types.Schema{}, &types.Schema{}),
		steps.NewPair(previous, next),
		changes,
	)
	c.Assert(stmts, qt.DeepEquals, []string{
		"ALTER TABLE `users` ADD COLUMN `email` VARCHAR(191) NOT NULL,\n" +
			"DROP COLUMN `legacy`,\n" +
			"MODIFY `bio` VARCHAR(191) NOT NULL",
	})
}

func TestIndexes(t *testing.T) {
	c := qt.New(t)
	r := mysql.New()

	table := &types.Table{Name: "posts"}

	stmts := r.CreateIndex(table, &types.Index{Name: "posts_body_idx", Type: types.IndexFulltext, Columns: []string{"body"}})
	c.Assert(stmts, qt.DeepEquals, []string{"CREATE FULLTEXT INDEX `posts_body_idx` ON `posts`(`body`)"})

	stmts = r.DropIndex(table, &types.Index{Name: "posts_body_idx"})
	c.Assert(stmts, qt.DeepEquals, []string{"DROP INDEX `posts_body_idx` ON `posts`"})

	stmts = r.AlterIndex(
		steps.NewPair(table, table),
		steps.NewPair(&types.Index{Name: "old_name"}, &types.Index{Name: "new_name"}),
	)
	c.Assert(stmts, qt.DeepEquals, []string{"ALTER TABLE `posts` RENAME INDEX `old_name` TO `new_name`"})
}

func TestForeignKeys(t *testing.T) {
	c := qt.New(t)
	r := mysql.New()

	table := &types.Table{Name: "posts"}
	fk := &types.ForeignKey{
		ConstraintName:    "posts_author_fk",
		Columns:           []string{"author_id"},
		ReferencedTable:   "users",
		ReferencedColumns: []string{"id"},
		OnDelete:          types.SetNull,
		OnUpdate:          types.Cascade,
	}

	stmts := r.AddForeignKey(table, fk)
	c.Assert(stmts, qt.DeepEquals, []string{
		"ALTER TABLE `posts` ADD CONSTRAINT `posts_author_fk` FOREIGN KEY (`author_id`) REFERENCES `users`(`id`) ON DELETE SET NULL ON UPDATE CASCADE",
	})

	stmts = r.DropForeignKey(table, fk)
	c.Assert(stmts, qt.DeepEquals, []string{"ALTER TABLE `posts` DROP FOREIGN KEY `posts_author_fk`"})

	c.Assert(r.DropForeignKey(table, &types.ForeignKey{}), qt.IsNil)
}

func TestEnums_RenderIntoColumnDefinitions(t *testing.T) {
	c := qt.New(t)
	r := mysql.New()

	// Standalone enum steps have no statement form; the variants live inline
	// on the columns.
	c.Assert(r.CreateEnum(&types.Enum{Name: "color"}), qt.IsNil)
	c.Assert(r.DropEnum(&types.Enum{Name: "color"}), qt.IsNil)

	next := &types.Schema{
		Tables: []types.Table{{
			Name: "shirts",
			Columns: []types.Column{{
				Name: "size",
				Type: types.ColumnType{Family: types.FamilyEnum, Arity: types.ArityRequired, NativeType: "shirts_size"},
			}},
		}},
		Enums: []types.Enum{{Name: "shirts_size", Values: []string{"small", "medium", "large"}}},
	}

	stmts := r.AlterEnum(
		steps.NewPair(&types.Schema{}, next),
		steps.NewPair(
			&types.Enum{Name: "shirts_size", Values: []string{"small", "large"}},
			&types.Enum{Name: "shirts_size", Values: []string{"small", "medium", "large"}},
		),
		[]string{"medium"},
		nil,
	)
	c.Assert(stmts, qt.DeepEquals, []string{
		"ALTER TABLE `shirts` MODIFY `size` ENUM('small', 'medium', 'large') NOT NULL",
	})
}
