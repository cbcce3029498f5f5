package node

import (
	"context"
	"fmt"

	"azulnodes/internal/core/domain"
	"azulnodes/internal/core/service"

	"github.com/rs/zerolog/log"
)

const SaveImageAsJPGName = "SaveImageAsJPG"

type SaveImageAsJPG struct {
	exporter service.Exporter
}

func NewSaveImageAsJPG(exporter service.Exporter) *SaveImageAsJPG {
	return &SaveImageAsJPG{exporter: exporter}
}

func (s *SaveImageAsJPG) GetName() string {
	return SaveImageAsJPGName
}

func (s *SaveImageAsJPG) Schema() domain.NodeSchema {
	return domain.NodeSchema{
		Name:        SaveImageAsJPGName,
		DisplayName: "Save Image (JPG)",
		Category:    domain.Category,
		Description: "Saves the input images as JPG files to your output directory with adjustable quality.",
		Function:    "save_jpgs",
		Required: []domain.InputField{
			{
				Name:    "images",
				Type:    domain.TypeImage,
				Tooltip: "The images to save as JPG.",
			},
			{
				Name:    "filename_prefix",
				Type:    domain.TypeString,
				Default: "ComfyUI",
				Tooltip: "The prefix for the files to save.",
			},
			{
				Name:    "quality",
				Type:    domain.TypeInt,
				Default: 95,
				Min:     domain.Bound(service.MinQuality),
				Max:     domain.Bound(service.MaxQuality),
				Step:    1,
				Tooltip: "JPEG quality (1-100). Higher is better quality, larger file size.",
			},
			{
				Name:    "subsampling",
				Type:    domain.TypeCombo,
				Default: "default",
				Choices: domain.SubsamplingChoices,
				Tooltip: "Chroma subsampling. 4:4:4 preserves the most color detail (good for graphics, " +
					"larger file). 4:2:0 is common for photos (smaller file).",
			},
		},
		Hidden:      map[string]string{"prompt": "PROMPT", "extra_pnginfo": "EXTRA_PNGINFO"},
		ReturnTypes: []domain.IOType{},
		OutputNode:  true,
	}
}

func (s *SaveImageAsJPG) Execute(ctx context.Context, inputs domain.Inputs) (*domain.NodeOutput, error) {
	in, err := s.Schema().Resolve(inputs)
	if err != nil {
		return nil, err
	}

	images := in["images"].([]domain.Image)
	prefix := in["filename_prefix"].(string)
	quality := in["quality"].(int)
	subsampling := domain.ParseSubsampling(in["subsampling"].(string))

	l := log.With().
		Str("node", s.GetName()).
		Int("images", len(images)).
		Int("quality", quality).
		Stringer("subsampling", subsampling).
		Logger()

	l.Info().Msg("executing node")

	saved, err := s.exporter.Export(ctx, images, prefix, quality, subsampling)
	if err != nil {
		return nil, fmt.Errorf("failed to save images: %w", err)
	}

	if len(saved) < len(images) {
		l.Warn().Int("saved", len(saved)).Msg("some images could not be saved")
	}

	return &domain.NodeOutput{
		UI:     &domain.UIOutput{Images: saved},
		Result: []any{},
	}, nil
}
