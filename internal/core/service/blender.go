package service

import (
	"fmt"

	"azulnodes/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Blender interface {
	Blend(to, from []domain.Conditioning, toStrength, overallStrength float64) []domain.Conditioning
	Policy() domain.StrengthPolicy
}

type ConditioningBlender struct {
	policy domain.StrengthPolicy
}

func NewConditioningBlender() (*ConditioningBlender, error) {
	policy, err := domain.ParseStrengthPolicy(viper.GetString("conditioning.strength_policy"))
	if err != nil {
		return nil, fmt.Errorf("failed to load strength policy: %w", err)
	}

	log.Info().Str("policy", string(policy)).Msg("conditioning strength policy active")

	return &ConditioningBlender{policy: policy}, nil
}

func (b *ConditioningBlender) Policy() domain.StrengthPolicy {
	return b.policy
}

// Blend interpolates every item of to with the first item of from. Problems with the inputs are
// resolved by fallbacks and logged; Blend never fails.
func (b *ConditioningBlender) Blend(to, from []domain.Conditioning, toStrength,
	overallStrength float64) []domain.Conditioning {
	l := log.With().
		Str("policy", string(b.policy)).
		Int("to", len(to)).
		Int("from", len(from)).
		Logger()

	if len(to) == 0 {
		l.Error().Msg("conditioning_to is empty or invalid")
		return []domain.Conditioning{}
	}

	for i, item := range to {
		if err := validateEmbedding(item.Embedding); err != nil {
			l.Error().Err(err).Int("item", i).Msg("conditioning_to is empty or invalid")
			return []domain.Conditioning{}
		}
	}

	if len(from) == 0 {
		l.Warn().Msg("conditioning_from is empty or invalid, passing through conditioning_to")
		return b.passThrough(to, overallStrength)
	}

	if err := validateEmbedding(from[0].Embedding); err != nil {
		l.Warn().Err(err).Msg("conditioning_from is empty or invalid, passing through conditioning_to")
		return b.passThrough(to, overallStrength)
	}

	if len(from) > 1 {
		l.Warn().Msg("conditioning_from contains more than 1 cond item, only the first one will be used")
	}

	weight := max(0, min(1, toStrength))
	source := from[0]

	out := make([]domain.Conditioning, 0, len(to))
	for i, item := range to {
		out = append(out, b.blendItem(l.With().Int("item", i).Logger(), item, source, weight, overallStrength))
	}

	return out
}

func (b *ConditioningBlender) passThrough(to []domain.Conditioning, overallStrength float64) []domain.Conditioning {
	out := make([]domain.Conditioning, 0, len(to))

	for _, item := range to {
		attrs := item.Attributes.Clone()

		if b.policy == domain.StrengthMultiply {
			attrs.SetStrength(item.Attributes.StrengthOr(domain.DefaultStrength) * overallStrength)
		} else {
			attrs.SetStrength(overallStrength)
		}

		out = append(out, domain.Conditioning{Embedding: item.Embedding, Attributes: attrs})
	}

	return out
}

func (b *ConditioningBlender) blendItem(l zerolog.Logger, to, from domain.Conditioning, weight,
	overallStrength float64) domain.Conditioning {
	attrs := to.Attributes.Clone()

	embedding, err := blendEmbedding(to.Embedding, from.Embedding, weight)
	if err != nil {
		l.Warn().Err(err).
			Ints("toShape", to.Embedding.Shape).
			Ints("fromShape", from.Embedding.Shape).
			Msg("embeddings not compatible, keeping conditioning_to")
		embedding = to.Embedding
	}

	pooledTo, pooledFrom := to.Attributes.PooledOutput, from.Attributes.PooledOutput

	switch {
	case pooledTo != nil && pooledFrom != nil:
		pooled, err := domain.Lerp(pooledFrom, pooledTo, weight)
		if err != nil {
			l.Warn().
				Ints("fromShape", pooledFrom.Shape).
				Ints("toShape", pooledTo.Shape).
				Msg("pooled output shapes mismatch, using conditioning_to's pooled output")
			break
		}
		attrs.PooledOutput = pooled
	case pooledFrom != nil:
		attrs.PooledOutput = pooledFrom.Scale(1 - weight)
	}

	if b.policy == domain.StrengthMultiply {
		avg := to.Attributes.StrengthOr(domain.DefaultStrength)*weight +
			from.Attributes.StrengthOr(domain.DefaultStrength)*(1-weight)
		attrs.SetStrength(avg * overallStrength)
	} else {
		attrs.SetStrength(overallStrength)
	}

	return domain.Conditioning{Embedding: embedding, Attributes: attrs}
}

// blendEmbedding aligns from to the sequence length and batch size of to and interpolates.
func blendEmbedding(to, from *domain.Tensor, weight float64) (*domain.Tensor, error) {
	if from.Shape[2] != to.Shape[2] {
		return nil, fmt.Errorf("hidden size %d does not match %d", from.Shape[2], to.Shape[2])
	}

	aligned, err := from.AlignSequence(to.Shape[1])
	if err != nil {
		return nil, err
	}

	aligned, ok := aligned.BroadcastBatch(to.Shape[0])
	if !ok {
		return nil, fmt.Errorf("batch size %d does not match %d", from.Shape[0], to.Shape[0])
	}

	return domain.Lerp(aligned, to, weight)
}

func validateEmbedding(t *domain.Tensor) error {
	if t == nil {
		return fmt.Errorf("%w: missing embedding", domain.ErrInvalidTensor)
	}

	if err := t.Validate(); err != nil {
		return err
	}

	if len(t.Shape) != 3 {
		return fmt.Errorf("%w: expected [batch, sequence, hidden], got %v", domain.ErrInvalidTensor, t.Shape)
	}

	return nil
}
