package port

import (
	"context"
	"image"
	"io"

	"azulnodes/internal/core/domain"
)

type ImageEncoder interface {
	// Encode writes img to w as JPEG using the given options, or fails without a usable result.
	Encode(ctx context.Context, w io.Writer, img image.Image, opts domain.EncodeOptions) error
}
