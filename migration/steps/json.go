package steps

import (
	"encoding/json"
	"fmt"

	"github.com/stokaro/seshat/dbschema/types"
)

// stepEnvelope is the wire form of one step: the variant name as a tag plus
// the variant's own fields.
type stepEnvelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

type migrationJSON struct {
	Before *json.RawMessage `json:"before"`
	After  *json.RawMessage `json:"after"`
	Steps  []stepEnvelope   `json:"steps"`
}

// MarshalJSON encodes the migration with each step wrapped in a kind-tagged
// envelope, so the closed variant set survives the round trip.
func (m *Migration) MarshalJSON() ([]byte, error) {
	out := migrationJSON{}

	if m.Before != nil {
		raw, err := json.Marshal(m.Before)
		if err != nil {
			return nil, err
		}
		msg := json.RawMessage(raw)
		out.Before = &msg
	}
	if m.After != nil {
		raw, err := json.Marshal(m.After)
		if err != nil {
			return nil, err
		}
		msg := json.RawMessage(raw)
		out.After = &msg
	}

	for _, step := range m.Steps {
		body, err := json.Marshal(step)
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, stepEnvelope{
			Kind: step.Description(),
			Body: body,
		})
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes a migration produced by MarshalJSON. An unknown step
// kind is an error, never silently skipped.
func (m *Migration) UnmarshalJSON(data []byte) error {
	var in migrationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if in.Before != nil {
		m.Before = &types.Schema{}
		if err := json.Unmarshal(*in.Before, m.Before); err != nil {
			return err
		}
	}
	if in.After != nil {
		m.After = &types.Schema{}
		if err := json.Unmarshal(*in.After, m.After); err != nil {
			return err
		}
	}

	m.Steps = nil
	for _, envelope := range in.Steps {
		step, err := decodeStep(envelope)
		if err != nil {
			return err
		}
		m.Steps = append(m.Steps, step)
	}
	return nil
}

func decodeStep(envelope stepEnvelope) (Step, error) {
	switch envelope.Kind {
	case "CreateTable":
		return decodeBody[CreateTable](envelope)
	case "DropTable":
		return decodeBody[DropTable](envelope)
	case "AlterTable":
		return decodeBody[AlterTable](envelope)
	case "RedefineTables":
		return decodeBody[RedefineTables](envelope)
	case "CreateIndex":
		return decodeBody[CreateIndex](envelope)
	case "DropIndex":
		return decodeBody[DropIndex](envelope)
	case "AlterIndex":
		return decodeBody[AlterIndex](envelope)
	case "RedefineIndex":
		return decodeBody[RedefineIndex](envelope)
	case "AddForeignKey":
		return decodeBody[AddForeignKey](envelope)
	case "DropForeignKey":
		return decodeBody[DropForeignKey](envelope)
	case "CreateEnum":
		return decodeBody[CreateEnum](envelope)
	case "DropEnum":
		return decodeBody[DropEnum](envelope)
	case "AlterEnum":
		return decodeBody[AlterEnum](envelope)
	default:
		return nil, fmt.Errorf("unknown migration step kind %q", envelope.Kind)
	}
}

func decodeBody[T Step](envelope stepEnvelope) (Step, error) {
	var step T
	if err := json.Unmarshal(envelope.Body, &step); err != nil {
		return nil, fmt.Errorf("failed to decode %s step: %w", envelope.Kind, err)
	}
	return step, nil
}

// tableChangeEnvelope is the wire form of one column-level change inside an
// AlterTable step.
type tableChangeEnvelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

type alterTableJSON struct {
	Table   Pair[int]             `json:"table"`
	Changes []tableChangeEnvelope `json:"changes"`
}

func (s AlterTable) MarshalJSON() ([]byte, error) {
	out := alterTableJSON{Table: s.Table}
	for _, change := range s.Changes {
		var kind string
		switch change.(type) {
		case AddColumn:
			kind = "AddColumn"
		case DropColumn:
			kind = "DropColumn"
		case AlterColumn:
			kind = "AlterColumn"
		default:
			return nil, fmt.Errorf("unknown table change %T", change)
		}
		body, err := json.Marshal(change)
		if err != nil {
			return nil, err
		}
		out.Changes = append(out.Changes, tableChangeEnvelope{Kind: kind, Body: body})
	}
	return json.Marshal(out)
}

func (s *AlterTable) UnmarshalJSON(data []byte) error {
	var in alterTableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	s.Table = in.Table
	s.Changes = nil
	for _, envelope := range in.Changes {
		var change TableChange
		switch envelope.Kind {
		case "AddColumn":
			var c AddColumn
			if err := json.Unmarshal(envelope.Body, &c); err != nil {
				return err
			}
			change = c
		case "DropColumn":
			var c DropColumn
			if err := json.Unmarshal(envelope.Body, &c); err != nil {
				return err
			}
			change = c
		case "AlterColumn":
			var c AlterColumn
			if err := json.Unmarshal(envelope.Body, &c); err != nil {
				return err
			}
			change = c
		default:
			return fmt.Errorf("unknown table change kind %q", envelope.Kind)
		}
		s.Changes = append(s.Changes, change)
	}
	return nil
}
