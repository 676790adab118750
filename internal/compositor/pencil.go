package compositor

import (
	"image"

	"github.com/gogpu/gg"

	"github.com/bryanchriswhite/speeddraw/internal/lineart"
)

// PencilRadius is the radius of one speed-drawing dot. It does not scale with
// the canvas or the reveal-area multiplier.
const PencilRadius = 1.0

// Pencil is the progressive speed-drawing canvas. Dots accumulate; nothing
// is ever erased.
type Pencil struct {
	dc    *gg.Context
	pm    *gg.Pixmap
	frame *image.RGBA
	drawn int
}

// NewPencil creates a canvas filled with background that draws in line.
func NewPencil(width, height int, line, background gg.RGBA) *Pencil {
	pm := gg.NewPixmap(width, height)
	dc := gg.NewContext(width, height, gg.WithPixmap(pm))
	dc.ClearWithColor(background)
	dc.SetColor(line.Color())
	return &Pencil{
		dc: dc,
		pm: pm,
		frame: &image.RGBA{
			Pix:    pm.Data(),
			Stride: 4 * width,
			Rect:   image.Rect(0, 0, width, height),
		},
	}
}

// Draw adds anti-aliased dots centered on each point's pixel.
func (p *Pencil) Draw(points []lineart.Point) error {
	if len(points) == 0 {
		return nil
	}
	for _, pt := range points {
		p.dc.DrawCircle(float64(pt.X)+0.5, float64(pt.Y)+0.5, PencilRadius)
	}
	if err := p.dc.Fill(); err != nil {
		return err
	}
	p.drawn += len(points)
	return nil
}

// DrawUpTo draws the points not yet drawn up to index n, so the canvas shows
// exactly the first n points.
func (p *Pencil) DrawUpTo(points []lineart.Point, n int) error {
	n = min(n, len(points))
	if n <= p.drawn {
		return nil
	}
	return p.Draw(points[p.drawn:n])
}

// Frame returns the canvas. The image aliases the canvas memory and changes
// with every Draw.
func (p *Pencil) Frame() (*image.RGBA, error) {
	if err := p.dc.FlushGPU(); err != nil {
		return nil, err
	}
	return p.frame, nil
}

// Close releases the drawing context.
func (p *Pencil) Close() error {
	return p.dc.Close()
}
