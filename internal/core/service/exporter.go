package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"azulnodes/internal/core/domain"
	"azulnodes/internal/core/port"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultPrefixSuffix = "_jpg"
	batchNumPlaceholder = "%batch_num%"

	MinQuality = 1
	MaxQuality = 100
)

type Exporter interface {
	Export(ctx context.Context, images []domain.Image, prefix string, quality int,
		subsampling domain.Subsampling) ([]domain.SavedImage, error)
}

type JPEGExporter struct {
	encoder      port.ImageEncoder
	allocator    port.PathAllocator
	writer       port.FileWriter
	prefixSuffix string
}

func NewJPEGExporter(encoder port.ImageEncoder, allocator port.PathAllocator, writer port.FileWriter) *JPEGExporter {
	suffix := defaultPrefixSuffix
	if viper.IsSet("jpeg.prefix_suffix") {
		suffix = viper.GetString("jpeg.prefix_suffix")
	}

	return &JPEGExporter{
		encoder:      encoder,
		allocator:    allocator,
		writer:       writer,
		prefixSuffix: suffix,
	}
}

// Export writes one JPEG per image and returns the files that were written. Images that cannot be
// encoded are logged and skipped; only path allocation problems are returned as errors.
func (e *JPEGExporter) Export(ctx context.Context, images []domain.Image, prefix string, quality int,
	subsampling domain.Subsampling) ([]domain.SavedImage, error) {
	if len(images) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	prefix += e.prefixSuffix

	savePath, err := e.allocator.Allocate(prefix, images[0].Width, images[0].Height)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate output path: %w", err)
	}

	quality = max(MinQuality, min(MaxQuality, quality))

	full := domain.EncodeOptions{Quality: quality, Optimize: true, Subsampling: subsampling}
	minimal := domain.EncodeOptions{Quality: quality, Subsampling: domain.SubsamplingDefault}

	counter := savePath.Counter
	results := make([]domain.SavedImage, 0, len(images))

	for batch, frame := range images {
		l := log.With().
			Int("batch", batch).
			Str("prefix", savePath.Prefix).
			Logger()

		if err := ctx.Err(); err != nil {
			l.Warn().Err(err).Msg("export cancelled, skipping remaining images")
			break
		}

		rgb, err := frame.ToRGBA()
		if err != nil {
			l.Error().Err(err).Msg("skipping invalid image")
			continue
		}

		name := strings.ReplaceAll(savePath.Filename, batchNumPlaceholder, strconv.Itoa(batch))
		file := fmt.Sprintf("%s_%d_%05d_.jpg", name, batch, counter)
		path := filepath.Join(savePath.Folder, file)

		if !e.save(ctx, l.With().Str("path", path).Logger(), path, rgb, full, minimal) {
			continue
		}

		results = append(results, domain.SavedImage{
			Filename:  file,
			Subfolder: savePath.Subfolder,
			Type:      domain.OutputType,
		})
		counter++
	}

	return results, nil
}

func (e *JPEGExporter) save(ctx context.Context, l zerolog.Logger, path string, img *image.RGBA,
	full, minimal domain.EncodeOptions) bool {
	err := e.writer.WriteFile(path, func(w io.Writer) error {
		return e.encoder.Encode(ctx, w, img, full)
	})
	if err == nil {
		l.Debug().Int("quality", full.Quality).Stringer("subsampling", full.Subsampling).Msg("saved jpg")
		return true
	}

	l.Warn().Err(err).Msg("error saving jpg, attempting basic save")

	err = e.writer.WriteFile(path, func(w io.Writer) error {
		return e.encoder.Encode(ctx, w, img, minimal)
	})
	if err != nil {
		l.Error().Err(err).Msg("fallback jpg save also failed")
		return false
	}

	l.Debug().Int("quality", minimal.Quality).Msg("saved jpg with basic options")

	return true
}
