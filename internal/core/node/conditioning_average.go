package node

import (
	"context"
	"fmt"

	"azulnodes/internal/core/domain"
	"azulnodes/internal/core/service"

	"github.com/rs/zerolog/log"
)

const WeightedConditioningAverageName = "WeightedConditioningAverage"

type WeightedConditioningAverage struct {
	blender service.Blender
}

func NewWeightedConditioningAverage(blender service.Blender) *WeightedConditioningAverage {
	return &WeightedConditioningAverage{blender: blender}
}

func (w *WeightedConditioningAverage) GetName() string {
	return WeightedConditioningAverageName
}

func (w *WeightedConditioningAverage) Schema() domain.NodeSchema {
	return domain.NodeSchema{
		Name:        WeightedConditioningAverageName,
		DisplayName: "Conditioning Average (Weighted Output)",
		Category:    domain.Category,
		Description: fmt.Sprintf("Averages two conditionings based on 'conditioning_to_strength', then applies "+
			"'overall_strength' to the result's influence (strength policy: %s).", w.blender.Policy()),
		Function: "addWeighted",
		Required: []domain.InputField{
			{
				Name:    "conditioning_to",
				Type:    domain.TypeConditioning,
				Tooltip: "The primary conditioning. Its strength is controlled by 'conditioning_to_strength'.",
			},
			{
				Name:    "conditioning_from",
				Type:    domain.TypeConditioning,
				Tooltip: "The secondary conditioning being averaged into the primary.",
			},
			{
				Name:    "conditioning_to_strength",
				Type:    domain.TypeFloat,
				Default: 1.0,
				Min:     domain.Bound(0),
				Max:     domain.Bound(1),
				Step:    0.01,
				Tooltip: "The weight of the 'conditioning_to' input. 'conditioning_from' will have a weight " +
					"of (1.0 - this value).",
			},
			{
				Name:    "overall_strength",
				Type:    domain.TypeFloat,
				Default: 1.0,
				Min:     domain.Bound(0),
				Max:     domain.Bound(10),
				Step:    0.01,
				Tooltip: "The strength applied to the final averaged conditioning.",
			},
		},
		ReturnTypes:    []domain.IOType{domain.TypeConditioning},
		OutputTooltips: []string{"The averaged conditioning, with the overall strength applied."},
	}
}

func (w *WeightedConditioningAverage) Execute(_ context.Context, inputs domain.Inputs) (*domain.NodeOutput, error) {
	in, err := w.Schema().Resolve(inputs)
	if err != nil {
		return nil, err
	}

	to := in["conditioning_to"].([]domain.Conditioning)
	from := in["conditioning_from"].([]domain.Conditioning)
	toStrength := in["conditioning_to_strength"].(float64)
	overall := in["overall_strength"].(float64)

	log.Info().
		Str("node", w.GetName()).
		Float64("toStrength", toStrength).
		Float64("overallStrength", overall).
		Msg("executing node")

	return &domain.NodeOutput{
		Result: []any{w.blender.Blend(to, from, toStrength, overall)},
	}, nil
}
