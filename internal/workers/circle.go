package workers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"nickandperla.net/smartserv/internal/web"
)

const circleSize = 200

// CircleWorker draws a randomly colored filled circle as a PNG.
type CircleWorker struct{}

// Process writes the image.
func (w *CircleWorker) Process(ctx *web.Context) error {
	if err := ctx.SetMimeType("image/png"); err != nil {
		return err
	}

	fill := color.NRGBA{
		R: uint8(rand.IntN(256)),
		G: uint8(rand.IntN(256)),
		B: uint8(rand.IntN(256)),
		A: 255,
	}

	img := image.NewNRGBA(image.Rect(0, 0, circleSize, circleSize))
	r := circleSize / 2
	for y := 0; y < circleSize; y++ {
		for x := 0; x < circleSize; x++ {
			dx, dy := x-r, y-r
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	_, err := ctx.Write(buf.Bytes())
	return err
}
