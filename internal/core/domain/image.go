package domain

import (
	"image"
	"image/color"
	"math"
)

// ToRGBA converts the float image to 8-bit RGB. Values are scaled by 255, clipped and truncated;
// grayscale is replicated across channels and alpha is dropped.
func (i Image) ToRGBA() (*image.RGBA, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, i.Width, i.Height))

	for y := 0; y < i.Height; y++ {
		for x := 0; x < i.Width; x++ {
			p := i.Pix[(y*i.Width+x)*i.Channels:]

			var c color.RGBA
			if i.Channels == 1 {
				v := toByte(p[0])
				c = color.RGBA{R: v, G: v, B: v, A: 0xff}
			} else {
				c = color.RGBA{R: toByte(p[0]), G: toByte(p[1]), B: toByte(p[2]), A: 0xff}
			}

			out.SetRGBA(x, y, c)
		}
	}

	return out, nil
}

func toByte(v float64) uint8 {
	v *= 255
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// ImageFromGo converts a decoded image into a 3-channel float image in [0,1], discarding alpha.
func ImageFromGo(img image.Image) Image {
	b := img.Bounds()
	out := Image{Height: b.Dy(), Width: b.Dx(), Channels: 3, Pix: make([]float64, 0, b.Dx()*b.Dy()*3)}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.Pix = append(out.Pix, float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		}
	}

	return out
}
