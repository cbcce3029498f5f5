package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"azulnodes/internal/core/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes PNG, JPEG, WebP, BMP or TIFF data into a float RGB image.
func DecodeImage(data []byte) (domain.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("error decoding image %w", err)
	}

	log.Debug().Str("format", format).Stringer("bounds", src.Bounds()).Msg("decoded image")

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	return domain.ImageFromGo(dst), nil
}

// ReadImage loads and decodes an image from disk.
func ReadImage(path string) (domain.Image, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("error reading image file %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return domain.Image{}, err
	}

	return DecodeImage(buf)
}

// FetchImage downloads and decodes an image from a URL.
func FetchImage(ctx context.Context, url string) (domain.Image, error) {
	buf, err := DownloadFile(ctx, url)
	if err != nil {
		return domain.Image{}, err
	}

	return DecodeImage(buf)
}
