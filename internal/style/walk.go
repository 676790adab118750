package style

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/bryanchriswhite/speeddraw/internal/lineart"
)

const (
	classicSteps   = 4000
	classicSigma   = 0.4
	scribbleWalks  = 200
	scribbleMin    = 5
	scribbleMax    = 25 // exclusive
	scribbleSigma  = 1.5
	scribbleStride = 0.5
)

// walk appends a random walk to dst: the start point followed by steps moves
// of length step whose heading drifts by N(0, sigma) radians per move.
// Offsets are truncated toward zero and positions clamped to the canvas.
func walk(dst []lineart.Point, r *rand.Rand, start lineart.Point, steps int, step, sigma float64, w, h int) []lineart.Point {
	dst = append(dst, start)
	angle := r.Float64() * 2 * math.Pi
	cur := start
	for range steps {
		angle += r.NormFloat64() * sigma
		cur = lineart.Point{
			X: cur.X + int(step*math.Cos(angle)),
			Y: cur.Y + int(step*math.Sin(angle)),
		}.Clamp(w, h)
		dst = append(dst, cur)
	}
	return dst
}

func classicPath(req Request) []lineart.Point {
	start := lineart.Point{X: req.Width / 2, Y: req.Height / 2}
	points := make([]lineart.Point, 0, classicSteps+1)
	return walk(points, req.Rand, start, classicSteps, float64(req.StepSize), classicSigma, req.Width, req.Height)
}

func classicStroke(req Request) Plan {
	return Plan{
		Points: classicPath(req),
		Brush:  Brush{Kind: BrushSegments, Width: float64(req.Thickness)},
	}
}

func chaoticScribble(req Request) Plan {
	r := req.Rand
	var points []lineart.Point
	step := float64(req.StepSize) * scribbleStride
	for range scribbleWalks {
		start := lineart.Point{X: r.IntN(req.Width), Y: r.IntN(req.Height)}
		steps := scribbleMin + r.IntN(scribbleMax-scribbleMin)
		points = walk(points, r, start, steps, step, scribbleSigma, req.Width, req.Height)
	}
	return Plan{
		Points: points,
		Brush:  Brush{Kind: BrushDisc, Radius: req.Thickness / 2},
	}
}

func texturedBrush(req Request) Plan {
	return Plan{
		Points: classicPath(req),
		Brush:  Brush{Kind: BrushStamp, Texture: DiscTexture(2 * req.Thickness)},
	}
}

// DiscTexture returns a size x size stamp holding a filled disc of radius
// size/2 centered at (size/2, size/2).
func DiscTexture(size int) *image.Gray {
	tex := image.NewGray(image.Rect(0, 0, size, size))
	c := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-c, y-c
			if dx*dx+dy*dy <= c*c {
				tex.Pix[y*tex.Stride+x] = 255
			}
		}
	}
	return tex
}
