package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strconv"

	"azulnodes/internal/core/domain"

	"github.com/rs/zerolog/log"
)

var samplingFactors = map[domain.Subsampling]string{
	domain.Subsampling444: "4:4:4",
	domain.Subsampling422: "4:2:2",
	domain.Subsampling420: "4:2:0",
}

// MagickEncoder pipes images through ImageMagick, which supports every chroma subsampling mode and
// optimised Huffman tables.
type MagickEncoder struct {
	magickBinary []string
}

func NewMagickEncoder() (*MagickEncoder, error) {
	eh := &MagickEncoder{}
	commands := [][]string{{"magick", "-version"}, {"convert", "-version"}}

	for _, command := range commands {
		_, err := exec.Command(command[0], command[1:]...).Output()
		if err != nil {
			log.Debug().Strs("commands", command).Msg("binary not found")
			continue
		}

		log.Debug().Strs("commands", command).Msg("binary found")
		eh.magickBinary = command[:len(command)-1]
		break
	}

	if len(eh.magickBinary) == 0 {
		return nil, errors.New("magick binary not available")
	}

	return eh, nil
}

func (m *MagickEncoder) Encode(ctx context.Context, w io.Writer, img image.Image, opts domain.EncodeOptions) error {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return fmt.Errorf("error preparing magick input: %w", err)
	}

	args := append([]string{}, m.magickBinary[1:]...)
	args = append(args, "png:-", "-quality", strconv.Itoa(opts.Quality))

	if factor, ok := samplingFactors[opts.Subsampling]; ok {
		args = append(args, "-sampling-factor", factor)
	}

	if opts.Optimize {
		args = append(args, "-define", "jpeg:optimize-coding=true")
	}

	args = append(args, "jpeg:-")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.magickBinary[0], args...)
	cmd.Stdin = &in
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error().Bytes("magickStderr", stderr.Bytes()).Strs("args", args).Msg("magick command failed")
		return fmt.Errorf("magick encoding failed: %w", err)
	}

	log.Debug().Strs("args", args).Msg("magick command finished")

	return nil
}
