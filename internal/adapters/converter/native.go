package converter

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"azulnodes/internal/core/domain"
)

// NativeEncoder uses the standard library JPEG encoder. It always writes 4:2:0 and has no Huffman
// optimisation, so it rejects options it cannot honour instead of silently ignoring them.
type NativeEncoder struct{}

func NewNativeEncoder() *NativeEncoder {
	return &NativeEncoder{}
}

func (n *NativeEncoder) Encode(ctx context.Context, w io.Writer, img image.Image, opts domain.EncodeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch opts.Subsampling {
	case domain.SubsamplingDefault, domain.Subsampling420:
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedSubsampling, opts.Subsampling)
	}

	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return fmt.Errorf("jpeg encoding failed: %w", err)
	}

	return nil
}
