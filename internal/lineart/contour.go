package lineart

import (
	"cmp"
	"image"
	"slices"
)

// ring lists the 8-neighbourhood counter-clockwise on screen, starting east.
var ring = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

const (
	dirEast = 0
	dirWest = 4
)

func direction(dx, dy int) int {
	for d, o := range ring {
		if o.X == dx && o.Y == dy {
			return d
		}
	}
	panic("lineart: points are not 8-adjacent")
}

// TraceStrokes follows every border (outer and hole) of the skeleton's
// foreground with Suzuki-Abe border following, keeping every boundary pixel.
// Contours that collapse to a single pixel are dropped. Strokes are returned
// in ascending (min Y, min X) order; ties keep discovery order.
func TraceStrokes(skeleton *image.Gray) []Stroke {
	skeleton = zeroOrigin(skeleton)
	w, h := skeleton.Rect.Dx(), skeleton.Rect.Dy()

	t := &tracer{pw: w + 2}
	t.f = make([]int32, t.pw*(h+2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if skeleton.Pix[y*skeleton.Stride+x] != 0 {
				t.f[t.at(x+1, y+1)] = 1
			}
		}
	}

	var strokes []Stroke
	nbd := int32(1)
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			i := t.at(x, y)
			fij := t.f[i]
			var from int
			switch {
			case fij == 1 && t.f[i-1] == 0:
				from = dirWest
			case fij >= 1 && t.f[i+1] == 0:
				from = dirEast
			default:
				continue
			}
			nbd++
			if s := t.follow(x, y, from, nbd); len(s) >= 2 {
				strokes = append(strokes, s)
			}
		}
	}

	type keyed struct {
		stroke     Stroke
		minY, minX int
	}
	ordered := make([]keyed, len(strokes))
	for i, s := range strokes {
		minY, minX := s.minYX()
		ordered[i] = keyed{stroke: s, minY: minY, minX: minX}
	}
	slices.SortStableFunc(ordered, func(a, b keyed) int {
		return cmp.Or(cmp.Compare(a.minY, b.minY), cmp.Compare(a.minX, b.minX))
	})
	for i, k := range ordered {
		strokes[i] = k.stroke
	}
	return strokes
}

// Flatten concatenates strokes in order.
func Flatten(strokes []Stroke) []Point {
	n := 0
	for _, s := range strokes {
		n += len(s)
	}
	points := make([]Point, 0, n)
	for _, s := range strokes {
		points = append(points, s...)
	}
	return points
}

// Extract runs skeletonization and stroke tracing on a binary mask.
func Extract(mask *image.Gray) Path {
	strokes := TraceStrokes(Skeletonize(mask))
	return Path{
		Width:   mask.Bounds().Dx(),
		Height:  mask.Bounds().Dy(),
		Strokes: strokes,
		Points:  Flatten(strokes),
	}
}

// ExtractFile loads a line-art file and extracts its drawing path.
func ExtractFile(path string) (Path, error) {
	mask, err := LoadMask(path)
	if err != nil {
		return Path{}, err
	}
	return Extract(mask), nil
}

// tracer holds the zero-padded label grid. Cell values: 0 background,
// 1 unvisited foreground, +/-n visited by border n.
type tracer struct {
	f  []int32
	pw int
}

func (t *tracer) at(x, y int) int {
	return y*t.pw + x
}

func (t *tracer) set(x, y, d int) bool {
	o := ring[d]
	return t.f[t.at(x+o.X, y+o.Y)] != 0
}

// follow traces the border starting at (x0, y0), whose background neighbour
// lies in direction from. Coordinates are in padded space; the returned
// points are not.
func (t *tracer) follow(x0, y0, from int, nbd int32) Stroke {
	first := -1
	for k := 0; k < 8; k++ {
		d := (from - k + 8) % 8
		if t.set(x0, y0, d) {
			first = d
			break
		}
	}
	if first < 0 {
		t.f[t.at(x0, y0)] = -nbd
		return Stroke{{X: x0 - 1, Y: y0 - 1}}
	}

	x1, y1 := x0+ring[first].X, y0+ring[first].Y
	x2, y2 := x1, y1
	x3, y3 := x0, y0
	var stroke Stroke
	for {
		stroke = append(stroke, Point{X: x3 - 1, Y: y3 - 1})

		prev := direction(x2-x3, y2-y3)
		eastClear := false
		next := prev
		for k := 1; k <= 8; k++ {
			d := (prev + k) % 8
			if t.set(x3, y3, d) {
				next = d
				break
			}
			if d == dirEast {
				eastClear = true
			}
		}

		i3 := t.at(x3, y3)
		if eastClear {
			t.f[i3] = -nbd
		} else if t.f[i3] == 1 {
			t.f[i3] = nbd
		}

		x4, y4 := x3+ring[next].X, y3+ring[next].Y
		if x4 == x0 && y4 == y0 && x3 == x1 && y3 == y1 {
			return stroke
		}
		x2, y2 = x3, y3
		x3, y3 = x4, y4
	}
}
