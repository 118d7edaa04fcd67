package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder serves a single static frame for headless runs without a
// camera. The JPEG is rendered once at construction.
type Placeholder struct {
	frame []byte
}

func NewPlaceholder(width, height int) (*Placeholder, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{18, 18, 24, 255}), image.Point{}, draw.Src)

	drawCentered(img, "camera not available", width/2, height/2-10, color.RGBA{235, 235, 235, 255})
	drawCentered(img, "(headless mode)", width/2, height/2+14, color.RGBA{150, 150, 150, 255})

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return &Placeholder{frame: buf.Bytes()}, nil
}

func (p *Placeholder) Frame(ctx context.Context) ([]byte, error) {
	return p.frame, nil
}

func drawCentered(img draw.Image, text string, cx, cy int, col color.Color) {
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
	}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - width/2,
		Y: fixed.I(cy),
	}
	d.DrawString(text)
}
