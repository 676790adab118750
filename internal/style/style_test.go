package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
	"github.com/bryanchriswhite/speeddraw/internal/lineart"
)

func request(seed uint64) Request {
	return Request{
		Width:        320,
		Height:       180,
		StepSize:     40,
		Thickness:    30,
		RevealFrames: 100,
		Rand:         NewRand(seed),
	}
}

func assertInBounds(t *testing.T, points []lineart.Point, w, h int) {
	t.Helper()
	for _, p := range points {
		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			t.Fatalf("point %v outside %dx%d", p, w, h)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Style
	}{
		{"1", ClassicStroke},
		{" 3 ", TexturedBrush},
		{"chaotic_scribble", ChaoticScribble},
		{"Line_Art_Following", LineArtFollowing},
		{"4", RandomLineFollowing},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"0", "6", "watercolor", ""} {
		_, err := Parse(bad)
		assert.True(t, animerr.Is(err, animerr.CodeValidation), "input %q", bad)
	}
}

func TestCatalogMatchesStyles(t *testing.T) {
	infos := Catalog()
	require.Len(t, infos, 5)
	for i, info := range infos {
		assert.Equal(t, Style(i+1), info.ID)
		assert.Equal(t, info.Name, info.ID.String())
		assert.NotEmpty(t, info.Description)
		assert.NotEmpty(t, info.BestFor)
	}
	assert.Equal(t, "style(9)", Style(9).String())
}

func TestClassicStroke(t *testing.T) {
	plan, err := Generate(ClassicStroke, request(7))
	require.NoError(t, err)

	require.Len(t, plan.Points, 4001)
	assert.Equal(t, lineart.Point{X: 160, Y: 90}, plan.Points[0])
	assertInBounds(t, plan.Points, 320, 180)
	assert.Equal(t, ClassicStroke, plan.Style)
	assert.Equal(t, 40, plan.PerFrame)
	assert.Equal(t, Brush{Kind: BrushSegments, Width: 30}, plan.Brush)
}

func TestGenerateIsReproducibleForSeed(t *testing.T) {
	for _, s := range []Style{ClassicStroke, ChaoticScribble, TexturedBrush} {
		a, err := Generate(s, request(42))
		require.NoError(t, err)
		b, err := Generate(s, request(42))
		require.NoError(t, err)
		assert.Equal(t, a.Points, b.Points, s.String())
	}
}

func TestChaoticScribble(t *testing.T) {
	plan, err := Generate(ChaoticScribble, request(3))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(plan.Points), scribbleWalks*(scribbleMin+1))
	assert.LessOrEqual(t, len(plan.Points), scribbleWalks*scribbleMax)
	assertInBounds(t, plan.Points, 320, 180)
	assert.Equal(t, Brush{Kind: BrushDisc, Radius: 15}, plan.Brush)
}

func TestTexturedBrush(t *testing.T) {
	plan, err := Generate(TexturedBrush, request(3))
	require.NoError(t, err)

	assert.Len(t, plan.Points, 4001)
	require.Equal(t, BrushStamp, plan.Brush.Kind)
	tex := plan.Brush.Texture
	require.NotNil(t, tex)
	assert.Equal(t, 60, tex.Bounds().Dx())
	assert.Equal(t, 60, tex.Bounds().Dy())
	assert.Equal(t, uint8(255), tex.GrayAt(30, 30).Y)
	assert.Equal(t, uint8(255), tex.GrayAt(0, 30).Y)
	assert.Equal(t, uint8(0), tex.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), tex.GrayAt(59, 59).Y)
}

func TestLineFollowingFallsBackToClassicPath(t *testing.T) {
	for _, s := range []Style{RandomLineFollowing, LineArtFollowing} {
		plan, err := Generate(s, request(11))
		require.NoError(t, err)

		assert.Len(t, plan.Points, 4001, s.String())
		assert.Equal(t, lineart.Point{X: 160, Y: 90}, plan.Points[0])
		assert.Equal(t, Brush{Kind: BrushDisc, Radius: 10}, plan.Brush)
	}
}

func TestLineArtFollowingExpandsInDrawingOrder(t *testing.T) {
	req := request(1)
	req.DrawingPoints = []lineart.Point{{X: 50, Y: 50}, {X: 50, Y: 50}, {X: 100, Y: 60}}

	plan, err := Generate(LineArtFollowing, req)
	require.NoError(t, err)

	// reach 4, stride 2: a 5x5 grid per drawing point, repeats included.
	require.Len(t, plan.Points, 75)
	assert.Equal(t, lineart.Point{X: 46, Y: 46}, plan.Points[0])
	assert.Equal(t, lineart.Point{X: 46, Y: 48}, plan.Points[1])
	assert.Equal(t, lineart.Point{X: 54, Y: 54}, plan.Points[24])
	assert.Equal(t, lineart.Point{X: 46, Y: 46}, plan.Points[25])
	assert.Equal(t, lineart.Point{X: 96, Y: 56}, plan.Points[50])
	assert.Equal(t, 1, plan.PerFrame)

	again, err := Generate(LineArtFollowing, req)
	require.NoError(t, err)
	assert.Equal(t, plan.Points, again.Points)
}

func TestLineFollowingClamps(t *testing.T) {
	req := request(1)
	req.DrawingPoints = []lineart.Point{{X: 0, Y: 0}}

	plan, err := Generate(LineArtFollowing, req)
	require.NoError(t, err)

	require.Len(t, plan.Points, 25)
	assert.Equal(t, lineart.Point{X: 0, Y: 0}, plan.Points[0])
	assertInBounds(t, plan.Points, req.Width, req.Height)
}

func TestRandomLineFollowingDedupes(t *testing.T) {
	req := request(1)
	req.DrawingPoints = []lineart.Point{{X: 0, Y: 0}, {X: 0, Y: 0}}

	plan, err := Generate(RandomLineFollowing, req)
	require.NoError(t, err)

	assert.ElementsMatch(t, []lineart.Point{
		{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: 4},
		{X: 2, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 4},
		{X: 4, Y: 0}, {X: 4, Y: 2}, {X: 4, Y: 4},
	}, plan.Points)
}

func TestRandomLineFollowingShufflesSamePoints(t *testing.T) {
	req := request(5)
	for x := 10; x < 300; x += 7 {
		req.DrawingPoints = append(req.DrawingPoints, lineart.Point{X: x, Y: 90})
	}

	ordered, err := Generate(LineArtFollowing, req)
	require.NoError(t, err)
	shuffled, err := Generate(RandomLineFollowing, req)
	require.NoError(t, err)

	assert.ElementsMatch(t, ordered.Points, shuffled.Points)
	assert.NotEqual(t, ordered.Points, shuffled.Points)
	assert.Equal(t, ordered.PerFrame, shuffled.PerFrame)
}

func TestSampleStride(t *testing.T) {
	points := make([]lineart.Point, 12000)
	for i := range points {
		points[i] = lineart.Point{X: i}
	}

	sampled := SampleStride(points, MaxBasePoints)

	require.Len(t, sampled, 6000)
	assert.Equal(t, 0, sampled[0].X)
	assert.Equal(t, 2, sampled[1].X)
	assert.Len(t, SampleStride(points[:MaxBasePoints], MaxBasePoints), MaxBasePoints)
}

func TestPointsPerFrame(t *testing.T) {
	assert.Equal(t, 13, PointsPerFrame(4001, 300))
	assert.Equal(t, 1, PointsPerFrame(10, 300))
	assert.Equal(t, 10, PointsPerFrame(10, 0))
	assert.Equal(t, 1, PointsPerFrame(0, 0))
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	req := request(1)
	req.Width = 0
	_, err := Generate(ClassicStroke, req)
	assert.True(t, animerr.Is(err, animerr.CodeProcessing))

	_, err = Generate(Style(8), request(1))
	assert.True(t, animerr.Is(err, animerr.CodeValidation))
}
