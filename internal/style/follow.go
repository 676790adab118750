package style

import (
	"github.com/bryanchriswhite/speeddraw/internal/lineart"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
)

// MaxBasePoints bounds how many drawing points seed the line-following
// styles before expansion.
const MaxBasePoints = 5000

// followLines expands the speed-drawing path into a band of reveal points.
// Every sampled drawing point contributes a small grid of neighbours. With
// shuffle, repeats are dropped keeping the first occurrence and the order is
// randomized; otherwise every grid point is kept in drawing order.
func followLines(req Request, s Style, shuffle bool) Plan {
	brush := Brush{Kind: BrushDisc, Radius: req.Thickness / 3}
	if len(req.DrawingPoints) == 0 {
		logger.WithComponent("style").Warn().
			Str("style", s.String()).
			Msg("No drawing points, falling back to classic stroke path")
		return Plan{Points: classicPath(req), Brush: brush}
	}

	base := SampleStride(req.DrawingPoints, MaxBasePoints)
	reach := max(2, req.StepSize/10)
	stride := max(2, req.StepSize/20)

	seen := make(map[lineart.Point]struct{}, len(base)*4)
	points := make([]lineart.Point, 0, len(base)*4)
	for _, pt := range base {
		for dx := -reach; dx <= reach; dx += stride {
			for dy := -reach; dy <= reach; dy += stride {
				p := lineart.Point{X: pt.X + dx, Y: pt.Y + dy}.Clamp(req.Width, req.Height)
				if shuffle {
					if _, dup := seen[p]; dup {
						continue
					}
					seen[p] = struct{}{}
				}
				points = append(points, p)
			}
		}
	}

	if shuffle {
		req.Rand.Shuffle(len(points), func(i, j int) {
			points[i], points[j] = points[j], points[i]
		})
	}

	logger.WithComponent("style").Debug().
		Str("style", s.String()).
		Int("drawing_points", len(req.DrawingPoints)).
		Int("sampled", len(base)).
		Int("expanded", len(points)).
		Msg("Expanded line-art path")
	return Plan{Points: points, Brush: brush}
}

// SampleStride keeps every k-th point, k = len(points)/limit, when points
// holds more than limit entries. The result may exceed limit by up to a
// factor of two.
func SampleStride(points []lineart.Point, limit int) []lineart.Point {
	if len(points) <= limit {
		return points
	}
	k := max(1, len(points)/limit)
	out := make([]lineart.Point, 0, len(points)/k+1)
	for i := 0; i < len(points); i += k {
		out = append(out, points[i])
	}
	return out
}
