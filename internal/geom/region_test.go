package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squarePoints() []Point {
	return []Point{{10, 10}, {100, 10}, {100, 100}, {10, 100}}
}

func TestClockwise(t *testing.T) {
	t.Parallel()

	assert.True(t, Clockwise(squarePoints()), "screen-space clockwise square")

	ccw := []Point{{10, 10}, {10, 100}, {100, 100}, {100, 10}}
	assert.False(t, Clockwise(ccw), "counter-clockwise square")
}

func TestNewRegionDefValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRegionDef([]Point{{0, 0}, {10, 0}}, nil)
	require.Error(t, err, "two points is not a polygon")

	_, err = NewRegionDef([]Point{{10, 10}, {10, 100}, {100, 100}}, nil)
	require.Error(t, err, "counter-clockwise points must be rejected")

	r, err := NewRegionDef(squarePoints(), nil)
	require.NoError(t, err)
	assert.Equal(t, squarePoints(), r.Points(nil))
}

func TestRegionDefEdges(t *testing.T) {
	t.Parallel()

	r, err := NewRegionDef(squarePoints(), nil)
	require.NoError(t, err)

	edges := r.Edges(nil)
	require.Len(t, edges, 4)
	assert.Equal(t, Segment{10, 10, 100, 10}, edges[0])
	assert.Equal(t, Segment{10, 100, 10, 10}, edges[3], "last edge closes the polygon")
}

func TestRegionDefSetCoordSpace(t *testing.T) {
	t.Parallel()

	qvga := CoordSpace{320, 240}
	vga := CoordSpace{640, 480}

	r, err := NewRegionDef(squarePoints(), &qvga)
	require.NoError(t, err)

	// First change rescales the committed points in place.
	r.SetCoordSpace(vga)
	got := r.Points(nil)
	assert.Equal(t, Point{20, 20}, got[0])

	// Asking for points in another space scales on the way out without
	// touching the stored points.
	back := r.Points(&qvga)
	assert.Equal(t, Point{10, 10}, back[0])
	assert.Equal(t, Point{20, 20}, r.Points(nil)[0])
}

func TestRegionDefProposePointChange(t *testing.T) {
	t.Parallel()

	r, err := NewRegionDef(squarePoints(), nil)
	require.NoError(t, err)

	var keys []string
	r.Subscribe(func(key string) { keys = append(keys, key) })

	// Valid move: nudge a corner outward.
	r.ProposePointChange(0, 5, 5, nil)
	assert.Equal(t, []string{ChangeProposed}, keys)
	assert.Equal(t, Point{5, 5}, r.ProposedPoints(nil)[0])
	// Committed points unchanged until accepted via SetPoints.
	assert.Equal(t, Point{10, 10}, r.Points(nil)[0])

	// Invalid move: dragging corner 0 past the opposite corner flips the
	// winding. Proposal must be left as it was.
	r.ProposePointChange(0, 150, 150, nil)
	assert.Equal(t, Point{5, 5}, r.ProposedPoints(nil)[0], "invalid proposal must not replace the pending one")
	assert.Len(t, keys, 1, "invalid proposal must not notify")

	r.RejectProposal()
	assert.Equal(t, Point{10, 10}, r.ProposedPoints(nil)[0])
	assert.Equal(t, []string{ChangeProposed, ChangeProposed}, keys)
}

func TestRegionDefProposeOffset(t *testing.T) {
	t.Parallel()

	r, err := NewRegionDef(squarePoints(), nil)
	require.NoError(t, err)

	// Offset within bounds moves every vertex.
	r.ProposeOffset(5, -5, 320, 240, nil)
	got := r.ProposedPoints(nil)
	assert.Equal(t, Point{15, 5}, got[0])
	assert.Equal(t, Point{105, 95}, got[2])

	// Offset past the frame edge is cropped, not rejected.
	r.ProposeOffset(1000, 0, 320, 240, nil)
	got = r.ProposedPoints(nil)
	assert.Equal(t, Point{229, 10}, got[0], "dx cropped so the region's right edge lands on the frame edge")

	r.ProposeOffset(-1000, -1000, 320, 240, nil)
	got = r.ProposedPoints(nil)
	assert.Equal(t, Point{0, 0}, got[0])
}

func TestRegionDefSetPoints(t *testing.T) {
	t.Parallel()

	r, err := NewRegionDef(squarePoints(), nil)
	require.NoError(t, err)

	var keys []string
	r.Subscribe(func(key string) { keys = append(keys, key) })

	r.ProposePointChange(0, 5, 5, nil)
	tri := []Point{{0, 0}, {50, 0}, {25, 50}}
	r.SetPoints(tri, nil)

	assert.Equal(t, tri, r.Points(nil))
	assert.Equal(t, tri, r.ProposedPoints(nil), "SetPoints clears the pending proposal")
	assert.Equal(t, []string{ChangeProposed, ChangePoints}, keys)
}

func TestSegmentIntersection(t *testing.T) {
	t.Parallel()

	// A plus sign: crosses at (50, 50).
	x, y, ok := SegmentIntersection(Segment{0, 50, 100, 50}, Segment{50, 0, 50, 100})
	require.True(t, ok)
	assert.Equal(t, 50.0, x)
	assert.Equal(t, 50.0, y)

	// Parallel.
	_, _, ok = SegmentIntersection(Segment{0, 0, 100, 0}, Segment{0, 10, 100, 10})
	assert.False(t, ok)

	// Lines cross but the segments don't reach each other.
	_, _, ok = SegmentIntersection(Segment{0, 50, 40, 50}, Segment{50, 0, 50, 100})
	assert.False(t, ok)
}
