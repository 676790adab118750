// Package lineart turns a raster line drawing into an ordered drawing path.
//
// The pipeline is LoadMask (flatten alpha, invert, threshold, denoise),
// Skeletonize (one-pixel centerlines) and TraceStrokes (border following
// plus a top-left to bottom-right stroke order). Flatten concatenates the
// strokes into the point list that drives speed drawing.
package lineart

// Point is a pixel coordinate on the canvas.
type Point struct {
	X, Y int
}

// Clamp restricts p to [0, w) x [0, h).
func (p Point) Clamp(w, h int) Point {
	return Point{X: min(max(p.X, 0), w-1), Y: min(max(p.Y, 0), h-1)}
}

// Stroke is one traced contour in tracing order.
type Stroke []Point

// minYX returns the stroke's sort key: smallest Y, then smallest X, taken
// independently over all points.
func (s Stroke) minYX() (int, int) {
	minY, minX := s[0].Y, s[0].X
	for _, p := range s[1:] {
		minY = min(minY, p.Y)
		minX = min(minX, p.X)
	}
	return minY, minX
}

// Path is the result of extracting a drawing path from a line-art image.
type Path struct {
	Width, Height int
	Strokes       []Stroke
	// Points is Strokes flattened in visitation order.
	Points []Point
}
