package domain

import (
	"fmt"
	"slices"
)

type IOType string

const (
	TypeImage        IOType = "IMAGE"
	TypeConditioning IOType = "CONDITIONING"
	TypeString       IOType = "STRING"
	TypeInt          IOType = "INT"
	TypeFloat        IOType = "FLOAT"
	TypeCombo        IOType = "COMBO"
)

// InputField declares one node input. Min, Max and Step only apply to numeric types, Choices
// only to combo inputs.
type InputField struct {
	Name    string   `json:"name"`
	Type    IOType   `json:"type"`
	Default any      `json:"default,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Tooltip string   `json:"tooltip,omitempty"`
}

type NodeSchema struct {
	Name           string            `json:"name"`
	DisplayName    string            `json:"display_name"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	Function       string            `json:"function"`
	Required       []InputField      `json:"required"`
	Hidden         map[string]string `json:"hidden,omitempty"`
	ReturnTypes    []IOType          `json:"return_types"`
	OutputTooltips []string          `json:"output_tooltips,omitempty"`
	OutputNode     bool              `json:"output_node"`
}

// Inputs carries node arguments keyed by field name. Values are []Image, []Conditioning,
// string, int or float64 depending on the field type.
type Inputs map[string]any

// NodeOutput is what a node returns to the graph: UI data for output nodes and positional results
// matching the schema's return types.
type NodeOutput struct {
	UI     *UIOutput `json:"ui,omitempty"`
	Result []any     `json:"result"`
}

type UIOutput struct {
	Images []SavedImage `json:"images"`
}

func Bound(v float64) *float64 {
	return &v
}

// Resolve fills defaults and validates every required field, returning a new Inputs value.
func (s NodeSchema) Resolve(in Inputs) (Inputs, error) {
	out := make(Inputs, len(s.Required))

	for _, f := range s.Required {
		v, ok := in[f.Name]
		if !ok || v == nil {
			if f.Default == nil {
				return nil, fmt.Errorf("%w: %s: missing required input %q", ErrInvalidInput, s.Name, f.Name)
			}
			v = f.Default
		}

		v, err := f.check(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalidInput, s.Name, f.Name, err)
		}

		out[f.Name] = v
	}

	return out, nil
}

func (f InputField) check(v any) (any, error) {
	switch f.Type {
	case TypeImage:
		images, ok := v.([]Image)
		if !ok {
			return nil, fmt.Errorf("expected image batch, got %T", v)
		}
		return images, nil
	case TypeConditioning:
		c, ok := v.([]Conditioning)
		if !ok {
			return nil, fmt.Errorf("expected conditioning list, got %T", v)
		}
		return c, nil
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return str, nil
	case TypeCombo:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if !slices.Contains(f.Choices, str) {
			return nil, fmt.Errorf("value %q not in %v", str, f.Choices)
		}
		return str, nil
	case TypeInt:
		n, ok := toFloat(v)
		if !ok || n != float64(int(n)) {
			return nil, fmt.Errorf("expected integer, got %v", v)
		}
		if err := f.checkRange(n); err != nil {
			return nil, err
		}
		return int(n), nil
	case TypeFloat:
		n, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		if err := f.checkRange(n); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown input type %s", f.Type)
	}
}

func (f InputField) checkRange(n float64) error {
	if f.Min != nil && n < *f.Min {
		return fmt.Errorf("value %v smaller than min of %v", n, *f.Min)
	}

	if f.Max != nil && n > *f.Max {
		return fmt.Errorf("value %v bigger than max of %v", n, *f.Max)
	}

	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
