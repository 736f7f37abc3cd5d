package applier_test

import (
	"fmt"

	"github.com/go-extras/go-kit/must"

	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/applier"
	"github.com/stokaro/seshat/migration/render/dialects/sqlite"
	"github.com/stokaro/seshat/migration/steps"
)

// ExampleApplier_RenderScript renders a one-step migration into a script.
func ExampleApplier_RenderScript() {
	m := &steps.Migration{
		Before: &types.Schema{},
		After: &types.Schema{Tables: []types.Table{{
			Name: "users",
			Columns: []types.Column{
				{Name: "id", Type: types.ColumnType{Family: types.FamilyInt, Arity: types.ArityRequired}, AutoIncrement: true},
				{Name: "name", Type: types.ColumnType{Family: types.FamilyString, Arity: types.ArityRequired}},
			},
			PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
		}}},
		Steps: []steps.Step{steps.CreateTable{Table: 0}},
	}

	a := applier.NewApplier(nil, sqlite.New())
	fmt.Print(must.Must(a.RenderScript(m, nil)))

	// Output:
	// -- [Step: CreateTable]
	// CREATE TABLE "users" (
	//     "id" INTEGER PRIMARY KEY AUTOINCREMENT,
	//     "name" TEXT NOT NULL
	// );
}
