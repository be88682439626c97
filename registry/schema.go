package registry

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// Field type hints understood by schema validation.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeJSON    = "json"
)

// Schema describes a handler's input/output contract.
type Schema struct {
	// Description is human-readable explanation
	Description string `json:"description,omitempty"`

	// Inputs describes required and optional payload fields
	Inputs []FieldSchema `json:"inputs,omitempty"`

	// Outputs describes what the handler produces
	Outputs []FieldSchema `json:"outputs,omitempty"`
}

// FieldSchema describes a payload or result field.
type FieldSchema struct {
	// Name is the field identifier
	Name string `json:"name"`

	// Required indicates if the field must be provided
	Required bool `json:"required"`

	// Default value if not provided (empty string if no default)
	Default string `json:"default,omitempty"`

	// Type hint: "string", "number", "boolean", "json"
	Type string `json:"type,omitempty"`

	// Description is human-readable explanation
	Description string `json:"description,omitempty"`
}

// Validate checks the schema declaration itself.
func (s *Schema) Validate() error {
	for _, fields := range [][]FieldSchema{s.Inputs, s.Outputs} {
		for _, f := range fields {
			if f.Name == "" {
				return tderrors.InvalidInput("schema field without a name")
			}
			switch f.Type {
			case "", TypeString, TypeNumber, TypeBoolean, TypeJSON:
			default:
				return tderrors.InvalidInput(fmt.Sprintf("schema field %q has unknown type %q", f.Name, f.Type))
			}
		}
	}
	return nil
}

// Marshal serializes the schema to JSON.
func (s *Schema) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// ValidateInputs checks a task payload against the declared inputs and
// returns the payload the handler should see, with defaults filled in.
// A schema with no declared inputs passes any payload through untouched.
func (s *Schema) ValidateInputs(payload any) (any, error) {
	if len(s.Inputs) == 0 {
		return payload, nil
	}

	values, ok := tasks.AsValues(payload)
	if !ok {
		if payload == nil {
			values = tasks.Values{}
		} else {
			return nil, tderrors.Validation(fmt.Sprintf("payload has type %T, want an object", payload))
		}
	}

	enriched := make(tasks.Values, len(values)+len(s.Inputs))
	for k, v := range values {
		enriched[k] = v
	}

	for _, f := range s.Inputs {
		if !enriched.Has(f.Name) {
			if f.Default != "" {
				enriched[f.Name] = f.Default
				continue
			}
			if f.Required {
				return nil, tderrors.Validation(fmt.Sprintf("payload missing required field %q", f.Name))
			}
			continue
		}
		if err := checkFieldType(f, enriched[f.Name]); err != nil {
			return nil, err
		}
	}
	return enriched, nil
}

// ValidateOutputs checks a handler result against the declared outputs.
func (s *Schema) ValidateOutputs(result any) error {
	if len(s.Outputs) == 0 {
		return nil
	}

	values, ok := tasks.AsValues(result)
	if !ok {
		return tderrors.Validation(fmt.Sprintf("result has type %T, want an object", result))
	}

	for _, f := range s.Outputs {
		if !values.Has(f.Name) {
			if f.Required {
				return tderrors.Validation(fmt.Sprintf("result missing required field %q", f.Name))
			}
			continue
		}
		if err := checkFieldType(f, values[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

func checkFieldType(f FieldSchema, v any) error {
	var err error
	switch f.Type {
	case TypeString:
		_, err = cast.ToStringE(v)
	case TypeNumber:
		_, err = cast.ToFloat64E(v)
	case TypeBoolean:
		_, err = cast.ToBoolE(v)
	case "", TypeJSON:
		return nil
	}
	if err != nil {
		return tderrors.Validation(
			fmt.Sprintf("field %q has type %T, want %s", f.Name, v, f.Type))
	}
	return nil
}
