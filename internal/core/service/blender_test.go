package service

import (
	"bytes"
	"testing"

	"azulnodes/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })

	return buf
}

func cond(seq int, data []float64, strength *float64) domain.Conditioning {
	c := domain.Conditioning{
		Embedding: &domain.Tensor{Shape: []int{1, seq, len(data) / seq}, Data: data},
	}
	if strength != nil {
		c.Attributes.SetStrength(*strength)
	}

	return c
}

func ptr(f float64) *float64 {
	return &f
}

func TestNewConditioningBlender(t *testing.T) {
	viper.Set("conditioning.strength_policy", "multiply")
	defer viper.Set("conditioning.strength_policy", "")

	b, err := NewConditioningBlender()
	require.NoError(t, err)
	assert.Equal(t, domain.StrengthMultiply, b.Policy())

	viper.Set("conditioning.strength_policy", "bogus")
	_, err = NewConditioningBlender()
	require.Error(t, err)
}

func TestBlendEmptyTo(t *testing.T) {
	logs := captureLogs(t)
	b := &ConditioningBlender{policy: domain.StrengthSet}

	out := b.Blend(nil, []domain.Conditioning{cond(1, []float64{1, 2}, nil)}, 0.5, 1)

	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Contains(t, logs.String(), `"level":"error"`)
}

func TestBlendInvalidTo(t *testing.T) {
	logs := captureLogs(t)
	b := &ConditioningBlender{policy: domain.StrengthSet}

	out := b.Blend([]domain.Conditioning{{}}, []domain.Conditioning{cond(1, []float64{1, 2}, nil)}, 0.5, 1)

	assert.Empty(t, out)
	assert.Contains(t, logs.String(), `"level":"error"`)
}

func TestBlendEmptyFrom(t *testing.T) {
	tests := []struct {
		description  string
		policy       domain.StrengthPolicy
		strength     *float64
		overall      float64
		wantStrength float64
	}{
		{
			description:  "set policy overwrites strength",
			policy:       domain.StrengthSet,
			strength:     ptr(0.5),
			overall:      2,
			wantStrength: 2,
		},
		{
			description:  "multiply policy scales strength",
			policy:       domain.StrengthMultiply,
			strength:     ptr(0.5),
			overall:      3,
			wantStrength: 1.5,
		},
		{
			description:  "multiply policy uses default strength",
			policy:       domain.StrengthMultiply,
			overall:      3,
			wantStrength: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			logs := captureLogs(t)
			b := &ConditioningBlender{policy: tc.policy}
			to := []domain.Conditioning{cond(1, []float64{1, 2}, tc.strength)}
			to[0].Attributes.Extra = map[string]any{"guidance": 3.5}

			out := b.Blend(to, nil, 0.5, tc.overall)

			require.Len(t, out, 1)
			assert.Same(t, to[0].Embedding, out[0].Embedding)
			assert.InDelta(t, tc.wantStrength, *out[0].Attributes.Strength, 1e-12)
			assert.Equal(t, map[string]any{"guidance": 3.5}, out[0].Attributes.Extra)
			assert.Equal(t, tc.strength, to[0].Attributes.Strength, "input attributes must not change")
			assert.Contains(t, logs.String(), `"level":"warn"`)
		})
	}
}

func TestBlendInvalidFromPassesThrough(t *testing.T) {
	b := &ConditioningBlender{policy: domain.StrengthSet}
	to := []domain.Conditioning{cond(1, []float64{1, 2}, nil)}
	from := []domain.Conditioning{{Embedding: &domain.Tensor{Shape: []int{2}, Data: []float64{1, 2}}}}

	out := b.Blend(to, from, 0.5, 4)

	require.Len(t, out, 1)
	assert.Equal(t, []float64{1, 2}, out[0].Embedding.Data)
	assert.InDelta(t, 4.0, *out[0].Attributes.Strength, 0)
}

func TestBlendStrengthEndpoints(t *testing.T) {
	to := cond(3, []float64{1, 2, 3, 4, 5, 6}, nil)

	tests := []struct {
		description string
		from        domain.Conditioning
		toStrength  float64
		want        []float64
	}{
		{
			description: "strength 1 returns to for shorter from",
			from:        cond(1, []float64{9, 9}, nil),
			toStrength:  1,
			want:        []float64{1, 2, 3, 4, 5, 6},
		},
		{
			description: "strength 1 returns to for longer from",
			from:        cond(4, []float64{9, 9, 9, 9, 9, 9, 9, 9}, nil),
			toStrength:  1,
			want:        []float64{1, 2, 3, 4, 5, 6},
		},
		{
			description: "strength above 1 is clamped",
			from:        cond(1, []float64{9, 9}, nil),
			toStrength:  1.7,
			want:        []float64{1, 2, 3, 4, 5, 6},
		},
		{
			description: "strength 0 returns zero padded from",
			from:        cond(1, []float64{7, 8}, nil),
			toStrength:  0,
			want:        []float64{7, 8, 0, 0, 0, 0},
		},
		{
			description: "strength 0 returns truncated from",
			from:        cond(4, []float64{1.5, 2.5, 3.5, 4.5, 5.5, 6.5, 7.5, 8.5}, nil),
			toStrength:  0,
			want:        []float64{1.5, 2.5, 3.5, 4.5, 5.5, 6.5},
		},
		{
			description: "negative strength is clamped",
			from:        cond(3, []float64{0, 0, 0, 0, 0, 0}, nil),
			toStrength:  -1,
			want:        []float64{0, 0, 0, 0, 0, 0},
		},
		{
			description: "strength 0.5 averages",
			from:        cond(3, []float64{3, 2, 1, 0, -1, -2}, nil),
			toStrength:  0.5,
			want:        []float64{2, 2, 2, 2, 2, 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			b := &ConditioningBlender{policy: domain.StrengthSet}

			out := b.Blend([]domain.Conditioning{to}, []domain.Conditioning{tc.from}, tc.toStrength, 1)

			require.Len(t, out, 1)
			assert.Equal(t, []int{1, 3, 2}, out[0].Embedding.Shape)
			assert.Equal(t, tc.want, out[0].Embedding.Data)
		})
	}
}

func TestBlendWithItselfIsIdentity(t *testing.T) {
	b := &ConditioningBlender{policy: domain.StrengthSet}
	items := []domain.Conditioning{
		cond(2, []float64{0.1, -0.7, 3.3, 1e-3}, nil),
		cond(1, []float64{42, -42}, nil),
	}

	for _, s := range []float64{0, 0.1, 0.33, 0.5, 0.9, 1} {
		out := b.Blend(items, items[:1], s, 1)
		require.Len(t, out, 2)
		assert.Equal(t, items[0].Embedding.Data, out[0].Embedding.Data)
	}
}

func TestBlendKeepsOrderAndUsesFirstFrom(t *testing.T) {
	logs := captureLogs(t)
	b := &ConditioningBlender{policy: domain.StrengthSet}
	to := []domain.Conditioning{
		cond(1, []float64{2, 2}, nil),
		cond(1, []float64{4, 4}, nil),
	}
	from := []domain.Conditioning{
		cond(1, []float64{0, 0}, nil),
		cond(1, []float64{100, 100}, nil),
	}

	out := b.Blend(to, from, 0.5, 1)

	require.Len(t, out, 2)
	assert.Equal(t, []float64{1, 1}, out[0].Embedding.Data)
	assert.Equal(t, []float64{2, 2}, out[1].Embedding.Data)
	assert.Contains(t, logs.String(), "only the first one will be used")
}

func TestBlendBroadcastsBatch(t *testing.T) {
	b := &ConditioningBlender{policy: domain.StrengthSet}
	to := domain.Conditioning{Embedding: &domain.Tensor{Shape: []int{2, 1, 2}, Data: []float64{2, 2, 4, 4}}}

	out := b.Blend([]domain.Conditioning{to}, []domain.Conditioning{cond(1, []float64{0, 0}, nil)}, 0.5, 1)

	require.Len(t, out, 1)
	assert.Equal(t, []float64{1, 1, 2, 2}, out[0].Embedding.Data)
}

func TestBlendHiddenMismatchKeepsTo(t *testing.T) {
	logs := captureLogs(t)
	b := &ConditioningBlender{policy: domain.StrengthSet}
	to := cond(1, []float64{1, 2}, nil)

	out := b.Blend([]domain.Conditioning{to}, []domain.Conditioning{cond(1, []float64{1, 2, 3}, nil)}, 0.5, 2)

	require.Len(t, out, 1)
	assert.Same(t, to.Embedding, out[0].Embedding)
	assert.InDelta(t, 2.0, *out[0].Attributes.Strength, 0)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestBlendPooledOutput(t *testing.T) {
	pooled := func(data ...float64) *domain.Tensor {
		return &domain.Tensor{Shape: []int{1, len(data)}, Data: data}
	}

	tests := []struct {
		description string
		pooledTo    *domain.Tensor
		pooledFrom  *domain.Tensor
		want        *domain.Tensor
		wantWarn    bool
	}{
		{
			description: "both present are interpolated",
			pooledTo:    pooled(4, 8),
			pooledFrom:  pooled(0, 0),
			want:        pooled(3, 6),
		},
		{
			description: "shape mismatch keeps to",
			pooledTo:    pooled(4, 8),
			pooledFrom:  pooled(1, 2, 3),
			want:        pooled(4, 8),
			wantWarn:    true,
		},
		{
			description: "only from is scaled",
			pooledFrom:  pooled(4, 8),
			want:        pooled(1, 2),
		},
		{
			description: "only to is kept",
			pooledTo:    pooled(4, 8),
			want:        pooled(4, 8),
		},
		{
			description: "neither stays empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			logs := captureLogs(t)
			b := &ConditioningBlender{policy: domain.StrengthSet}

			to := cond(1, []float64{1, 1}, nil)
			to.Attributes.PooledOutput = tc.pooledTo
			from := cond(1, []float64{1, 1}, nil)
			from.Attributes.PooledOutput = tc.pooledFrom

			out := b.Blend([]domain.Conditioning{to}, []domain.Conditioning{from}, 0.75, 1)

			require.Len(t, out, 1)
			assert.Equal(t, tc.want, out[0].Attributes.PooledOutput)
			assert.Equal(t, tc.wantWarn, bytes.Contains(logs.Bytes(), []byte(`"level":"warn"`)))
			assert.Equal(t, tc.pooledTo, to.Attributes.PooledOutput)
		})
	}
}

func TestBlendStrengthPolicy(t *testing.T) {
	tests := []struct {
		description string
		policy      domain.StrengthPolicy
		want        float64
	}{
		{
			description: "set",
			policy:      domain.StrengthSet,
			want:        2,
		},
		{
			description: "multiply averages original strengths",
			policy:      domain.StrengthMultiply,
			// (0.5*0.25 + 1.5*0.75) * 2
			want: 2.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			b := &ConditioningBlender{policy: tc.policy}
			to := cond(1, []float64{1, 1}, ptr(0.5))
			to.Attributes.Extra = map[string]any{"area": "full"}
			from := cond(1, []float64{1, 1}, ptr(1.5))

			out := b.Blend([]domain.Conditioning{to}, []domain.Conditioning{from}, 0.25, 2)

			require.Len(t, out, 1)
			assert.InDelta(t, tc.want, *out[0].Attributes.Strength, 1e-12)
			assert.Equal(t, "full", out[0].Attributes.Extra["area"])
			assert.InDelta(t, 0.5, *to.Attributes.Strength, 0)
		})
	}
}
