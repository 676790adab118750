package compositor

import (
	"image"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/speeddraw/internal/lineart"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

const (
	// Painted is the mask value that reveals the color image.
	Painted = 255
	// fullCoverage snaps near-opaque rasterizer coverage to Painted.
	fullCoverage = 0xf8
)

// Mask is the paint-reveal accumulation mask. Values only ever grow: every
// brush primitive is merged with an element-wise maximum.
type Mask struct {
	gray  *image.Gray
	brush style.Brush

	// scratch receives gg primitives before they are merged.
	scratch   *gg.Context
	scratchPM *gg.Pixmap

	// stamps caches the brush texture resized to clipped stamp sizes.
	stamps map[image.Point]*image.Gray
}

// NewMask creates an all-zero mask painted with brush.
func NewMask(width, height int, brush style.Brush) *Mask {
	m := &Mask{
		gray:   image.NewGray(image.Rect(0, 0, width, height)),
		brush:  brush,
		stamps: make(map[image.Point]*image.Gray),
	}
	if brush.Kind != style.BrushStamp {
		m.scratchPM = gg.NewPixmap(width, height)
		m.scratch = gg.NewContext(width, height, gg.WithPixmap(m.scratchPM))
		m.scratch.SetRGBA(1, 1, 1, 1)
		m.scratch.SetLineWidth(brush.Width)
		m.scratch.SetLineCap(gg.LineCapRound)
		m.scratch.SetLineJoin(gg.LineJoinRound)
	}
	return m
}

// Gray exposes the mask. Callers must not modify it.
func (m *Mask) Gray() *image.Gray {
	return m.gray
}

// Paint stamps points with the mask's brush and returns the rectangle that
// may have changed.
func (m *Mask) Paint(points []lineart.Point) (image.Rectangle, error) {
	if len(points) == 0 {
		return image.Rectangle{}, nil
	}
	switch m.brush.Kind {
	case style.BrushSegments:
		return m.paintSegments(points)
	case style.BrushDisc:
		return m.paintDiscs(points)
	default:
		return m.paintStamps(points), nil
	}
}

// paintSegments strokes every pair of consecutive points as its own thick
// round-capped line. A single point draws nothing.
func (m *Mask) paintSegments(points []lineart.Point) (image.Rectangle, error) {
	if len(points) < 2 {
		return image.Rectangle{}, nil
	}
	for i := 1; i < len(points); i++ {
		m.scratch.MoveTo(center(points[i-1]))
		m.scratch.LineTo(center(points[i]))
		if err := m.scratch.Stroke(); err != nil {
			return image.Rectangle{}, err
		}
	}
	pad := int(math.Ceil(m.brush.Width/2)) + 2
	return m.merge(bounds(points, pad))
}

func (m *Mask) paintDiscs(points []lineart.Point) (image.Rectangle, error) {
	r := float64(m.brush.Radius)
	if r <= 0 {
		r = 0.5
	}
	for _, pt := range points {
		x, y := center(pt)
		m.scratch.DrawCircle(x, y, r)
	}
	if err := m.scratch.Fill(); err != nil {
		return image.Rectangle{}, err
	}
	return m.merge(bounds(points, m.brush.Radius+2))
}

// merge folds scratch coverage inside r into the mask and clears scratch.
func (m *Mask) merge(r image.Rectangle) (image.Rectangle, error) {
	r = r.Intersect(m.gray.Rect)
	if r.Empty() {
		return r, nil
	}
	if err := m.scratch.FlushGPU(); err != nil {
		return image.Rectangle{}, err
	}
	data := m.scratchPM.Data()
	stride := 4 * m.gray.Rect.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := data[y*stride : (y+1)*stride]
		dst := m.gray.Pix[y*m.gray.Stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			a := src[4*x+3]
			if a == 0 {
				continue
			}
			if a >= fullCoverage {
				a = Painted
			}
			dst[x] = max(dst[x], a)
			clear(src[4*x : 4*x+4])
		}
	}
	return r, nil
}

// paintStamps max-merges the brush texture centered on every point. Stamps
// that hit the canvas edge are clipped and the texture is resized to the
// clipped area.
func (m *Mask) paintStamps(points []lineart.Point) image.Rectangle {
	tex := m.brush.Texture
	if tex == nil {
		return image.Rectangle{}
	}
	bw, bh := tex.Rect.Dx(), tex.Rect.Dy()
	w, h := m.gray.Rect.Dx(), m.gray.Rect.Dy()
	var dirty image.Rectangle
	for _, pt := range points {
		roi := image.Rect(
			max(0, pt.X-bw/2), max(0, pt.Y-bh/2),
			min(w, pt.X+bw/2), min(h, pt.Y+bh/2),
		)
		if roi.Empty() {
			continue
		}
		stamp := m.stamp(roi.Size())
		for y := 0; y < roi.Dy(); y++ {
			src := stamp.Pix[y*stamp.Stride : y*stamp.Stride+roi.Dx()]
			dst := m.gray.Pix[(roi.Min.Y+y)*m.gray.Stride+roi.Min.X:]
			for x, v := range src {
				dst[x] = max(dst[x], v)
			}
		}
		dirty = dirty.Union(roi)
	}
	return dirty
}

func (m *Mask) stamp(size image.Point) *image.Gray {
	tex := m.brush.Texture
	if size == tex.Rect.Size() {
		return tex
	}
	if s, ok := m.stamps[size]; ok {
		return s
	}
	s := image.NewGray(image.Rectangle{Max: size})
	draw.BiLinear.Scale(s, s.Rect, tex, tex.Rect, draw.Src, nil)
	m.stamps[size] = s
	return s
}

// Close releases the scratch context.
func (m *Mask) Close() error {
	if m.scratch == nil {
		return nil
	}
	return m.scratch.Close()
}

func center(p lineart.Point) (float64, float64) {
	return float64(p.X) + 0.5, float64(p.Y) + 0.5
}

// bounds is the bounding box of points grown by pad on every side.
func bounds(points []lineart.Point, pad int) image.Rectangle {
	r := image.Rect(points[0].X, points[0].Y, points[0].X+1, points[0].Y+1)
	for _, p := range points[1:] {
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
	}
	return r.Inset(-pad)
}
