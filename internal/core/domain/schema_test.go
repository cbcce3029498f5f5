package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() NodeSchema {
	return NodeSchema{
		Name: "Test",
		Required: []InputField{
			{Name: "images", Type: TypeImage},
			{Name: "prefix", Type: TypeString, Default: "ComfyUI"},
			{Name: "quality", Type: TypeInt, Default: 95, Min: Bound(1), Max: Bound(100)},
			{Name: "strength", Type: TypeFloat, Default: 1.0, Min: Bound(0), Max: Bound(1)},
			{Name: "mode", Type: TypeCombo, Default: "a", Choices: []string{"a", "b"}},
		},
	}
}

func TestResolveDefaults(t *testing.T) {
	got, err := testSchema().Resolve(Inputs{"images": []Image{}})
	require.NoError(t, err)

	assert.Equal(t, "ComfyUI", got["prefix"])
	assert.Equal(t, 95, got["quality"])
	assert.InDelta(t, 1.0, got["strength"], 0)
	assert.Equal(t, "a", got["mode"])
}

func TestResolveConvertsNumbers(t *testing.T) {
	got, err := testSchema().Resolve(Inputs{
		"images":   []Image{},
		"quality":  float64(80),
		"strength": 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 80, got["quality"])
	assert.InDelta(t, 1.0, got["strength"], 0)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		description string
		inputs      Inputs
	}{
		{
			description: "missing required input without default",
			inputs:      Inputs{},
		},
		{
			description: "wrong type for images",
			inputs:      Inputs{"images": "nope"},
		},
		{
			description: "quality below min",
			inputs:      Inputs{"images": []Image{}, "quality": 0},
		},
		{
			description: "strength above max",
			inputs:      Inputs{"images": []Image{}, "strength": 1.5},
		},
		{
			description: "fractional integer",
			inputs:      Inputs{"images": []Image{}, "quality": 9.5},
		},
		{
			description: "unknown choice",
			inputs:      Inputs{"images": []Image{}, "mode": "c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			_, err := testSchema().Resolve(tc.inputs)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
