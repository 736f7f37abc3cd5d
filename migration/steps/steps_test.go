package steps_test

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/dbschema/types"
	"github.com/stokaro/seshat/migration/steps"
)

func TestMigration_JSONRoundTrip(t *testing.T) {
	c := qt.New(t)

	m := &steps.Migration{
		Before: &types.Schema{Tables: []types.Table{{Name: "users"}}},
		After: &types.Schema{
			Tables: []types.Table{{Name: "users"}, {Name: "posts"}},
			Enums:  []types.Enum{{Name: "color", Values: []string{"red", "green"}}},
		},
		Steps: []steps.Step{
			steps.CreateEnum{Enum: 0},
			steps.CreateTable{Table: 1},
			steps.AlterTable{
				Table: steps.NewPair(0, 0),
				Changes: []steps.TableChange{
					steps.AddColumn{Column: 2},
					steps.DropColumn{Column: 1},
					steps.AlterColumn{Column: steps.NewPair(0, 0)},
				},
			},
			steps.RedefineTables{Tables: []steps.Pair[int]{steps.NewPair(0, 0)}},
			steps.CreateIndex{Table: 1, Index: 0},
			steps.DropIndex{Table: 0, Index: 1},
			steps.AlterIndex{Table: steps.NewPair(0, 0), Index: steps.NewPair(0, 0)},
			steps.RedefineIndex{Table: steps.NewPair(0, 0), Index: steps.NewPair(1, 1)},
			steps.AddForeignKey{Table: 1, ForeignKey: 0},
			steps.DropForeignKey{Table: 0, ForeignKey: 0},
			steps.DropEnum{Enum: 0},
			steps.AlterEnum{
				Enum:            steps.NewPair(0, 0),
				CreatedVariants: []string{"blue"},
				DroppedVariants: []string{"red"},
			},
			steps.DropTable{Table: 0},
		},
	}

	data, err := json.Marshal(m)
	c.Assert(err, qt.IsNil)

	var decoded steps.Migration
	err = json.Unmarshal(data, &decoded)
	c.Assert(err, qt.IsNil)

	c.Assert(decoded.Before, qt.DeepEquals, m.Before)
	c.Assert(decoded.After, qt.DeepEquals, m.After)
	c.Assert(decoded.Steps, qt.DeepEquals, m.Steps)
}

func TestMigration_UnmarshalUnknownKind(t *testing.T) {
	c := qt.New(t)

	var m steps.Migration
	err := json.Unmarshal([]byte(`{"steps":[{"kind":"TruncateTable","body":{}}]}`), &m)
	c.Assert(err, qt.ErrorMatches, `unknown migration step kind "TruncateTable"`)
}

func TestMigration_UnmarshalUnknownTableChange(t *testing.T) {
	c := qt.New(t)

	raw := `{"steps":[{"kind":"AlterTable","body":{"table":{"previous":0,"next":0},"changes":[{"kind":"RenameColumn","body":{}}]}}]}`

	var m steps.Migration
	err := json.Unmarshal([]byte(raw), &m)
	c.Assert(err, qt.ErrorMatches, `.*unknown table change kind "RenameColumn"`)
}

func TestStep_Descriptions(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		step     steps.Step
		expected string
	}{
		{steps.CreateTable{}, "CreateTable"},
		{steps.DropTable{}, "DropTable"},
		{steps.AlterTable{}, "AlterTable"},
		{steps.RedefineTables{}, "RedefineTables"},
		{steps.CreateIndex{}, "CreateIndex"},
		{steps.DropIndex{}, "DropIndex"},
		{steps.AlterIndex{}, "AlterIndex"},
		{steps.RedefineIndex{}, "RedefineIndex"},
		{steps.AddForeignKey{}, "AddForeignKey"},
		{steps.DropForeignKey{}, "DropForeignKey"},
		{steps.CreateEnum{}, "CreateEnum"},
		{steps.DropEnum{}, "DropEnum"},
		{steps.AlterEnum{}, "AlterEnum"},
	}

	for _, tt := range tests {
		c.Assert(tt.step.Description(), qt.Equals, tt.expected)
	}
}

func TestMigration_IsEmpty(t *testing.T) {
	c := qt.New(t)

	m := &steps.Migration{Before: &types.Schema{}, After: &types.Schema{}}
	c.Assert(m.IsEmpty(), qt.IsTrue)

	m.Steps = append(m.Steps, steps.CreateTable{Table: 0})
	c.Assert(m.IsEmpty(), qt.IsFalse)

	pair := m.Schemas()
	c.Assert(pair.Previous, qt.Equals, m.Before)
	c.Assert(pair.Next, qt.Equals, m.After)
}
