package domain

import (
	"encoding/json"
	"fmt"
	"maps"
)

const (
	AttrStrength     = "strength"
	AttrPooledOutput = "pooled_output"

	DefaultStrength = 1.0
)

// Image is a single frame of an image batch in row-major HWC order with values nominally in [0,1].
type Image struct {
	Height   int       `json:"height"`
	Width    int       `json:"width"`
	Channels int       `json:"channels"`
	Pix      []float64 `json:"data"`
}

func (i Image) Validate() error {
	if i.Height <= 0 || i.Width <= 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidImage, i.Width, i.Height)
	}

	switch i.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: %d channels", ErrInvalidImage, i.Channels)
	}

	if len(i.Pix) != i.Height*i.Width*i.Channels {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidImage,
			i.Height*i.Width*i.Channels, len(i.Pix))
	}

	return nil
}

// Conditioning is one guidance item: an embedding of shape [batch, sequence, hidden] and its attributes.
type Conditioning struct {
	Embedding  *Tensor    `json:"embedding"`
	Attributes Attributes `json:"attributes"`
}

// Attributes holds the keys of a conditioning item that are interpreted here. Everything else
// travels untouched in Extra.
type Attributes struct {
	Strength     *float64
	PooledOutput *Tensor
	Extra        map[string]any
}

func (a Attributes) StrengthOr(def float64) float64 {
	if a.Strength == nil {
		return def
	}

	return *a.Strength
}

func (a *Attributes) SetStrength(strength float64) {
	a.Strength = &strength
}

// Clone returns a copy whose top-level keys can be changed without touching the receiver.
func (a Attributes) Clone() Attributes {
	c := Attributes{
		PooledOutput: a.PooledOutput,
		Extra:        maps.Clone(a.Extra),
	}

	if a.Strength != nil {
		c.SetStrength(*a.Strength)
	}

	return c
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+2)
	maps.Copy(out, a.Extra)

	if a.Strength != nil {
		out[AttrStrength] = *a.Strength
	}

	if a.PooledOutput != nil {
		out[AttrPooledOutput] = a.PooledOutput
	}

	return json.Marshal(out)
}

func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Attributes{}

	for k, v := range raw {
		switch k {
		case AttrStrength:
			var s float64
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("invalid %s: %w", AttrStrength, err)
			}
			a.SetStrength(s)
		case AttrPooledOutput:
			if string(v) == "null" {
				continue
			}
			var t Tensor
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("invalid %s: %w", AttrPooledOutput, err)
			}
			a.PooledOutput = &t
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			if a.Extra == nil {
				a.Extra = make(map[string]any)
			}
			a.Extra[k] = val
		}
	}

	return nil
}

// SavedImage describes a written file the way the host UI expects it.
type SavedImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

const OutputType = "output"

// SavePath is the result of an output path allocation.
type SavePath struct {
	Folder    string
	Filename  string
	Counter   int
	Subfolder string
	Prefix    string
}

type Subsampling int

const (
	SubsamplingDefault Subsampling = -1
	Subsampling444     Subsampling = 0
	Subsampling422     Subsampling = 1
	Subsampling420     Subsampling = 2
)

var subsamplingNames = map[string]Subsampling{
	"default": SubsamplingDefault,
	"4:4:4":   Subsampling444,
	"4:2:2":   Subsampling422,
	"4:2:0":   Subsampling420,
}

// SubsamplingChoices lists the accepted names in display order.
var SubsamplingChoices = []string{"default", "4:4:4", "4:2:2", "4:2:0"}

// ParseSubsampling maps a choice name to its encoder constant. Unknown names fall back to the default.
func ParseSubsampling(name string) Subsampling {
	s, ok := subsamplingNames[name]
	if !ok {
		return SubsamplingDefault
	}

	return s
}

func (s Subsampling) String() string {
	for name, v := range subsamplingNames {
		if v == s {
			return name
		}
	}

	return "default"
}

type EncodeOptions struct {
	Quality     int
	Optimize    bool
	Subsampling Subsampling
}

type StrengthPolicy string

const (
	// StrengthSet overwrites the result strength with the overall strength.
	StrengthSet StrengthPolicy = "set"
	// StrengthMultiply scales the (averaged) original strength by the overall strength.
	StrengthMultiply StrengthPolicy = "multiply"
)

func ParseStrengthPolicy(s string) (StrengthPolicy, error) {
	switch StrengthPolicy(s) {
	case StrengthSet, "":
		return StrengthSet, nil
	case StrengthMultiply:
		return StrengthMultiply, nil
	default:
		return "", fmt.Errorf("unknown strength policy %q", s)
	}
}
