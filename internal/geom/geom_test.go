package geom

import "testing"

func TestTrackingPoint(t *testing.T) {
	t.Parallel()

	// (X2, Y2) exclusive: a box from (10,20) to (20,40) covers pixels
	// 10..19 x 20..39.
	box := BBox{X1: 10, Y1: 20, X2: 20, Y2: 40}

	cases := []struct {
		tp   TrackPoint
		want Point
	}{
		{TrackCenter, Point{14, 29}},
		{TrackTop, Point{14, 20}},
		{TrackBottom, Point{14, 39}},
		{TrackLeft, Point{10, 29}},
		{TrackRight, Point{19, 29}},
	}
	for _, c := range cases {
		if got := TrackingPoint(box, c.tp); got != c.want {
			t.Errorf("TrackingPoint(%v) = %v, want %v", c.tp, got, c.want)
		}
	}
}

func TestSideOfLine(t *testing.T) {
	t.Parallel()

	// Horizontal segment pointing in +x. In screen coordinates, "left" of
	// the direction of travel is above the line.
	seg := Segment{X1: 0, Y1: 100, X2: 200, Y2: 100}

	if got := SideOfLine(seg, Point{50, 110}); got != SideLeft {
		t.Errorf("point below line: got %v, want SideLeft", got)
	}
	if got := SideOfLine(seg, Point{50, 90}); got != SideRight {
		t.Errorf("point above line: got %v, want SideRight", got)
	}
	if got := SideOfLine(seg, Point{50, 100}); got != SideOn {
		t.Errorf("point on line: got %v, want SideOn", got)
	}
}

func TestCrossesLine(t *testing.T) {
	t.Parallel()

	boundary := Segment{X1: 0, Y1: 100, X2: 200, Y2: 100}

	// Centers at (50,90) and (50,110): straight down through the boundary.
	above := BBox{45, 85, 56, 96}
	below := BBox{45, 105, 56, 116}

	cases := []struct {
		name string
		prev BBox
		cur  BBox
		dir  Direction
		want bool
	}{
		{"down any", above, below, DirAny, true},
		{"down matches right", above, below, DirRight, true},
		{"down does not match left", above, below, DirLeft, false},
		{"up matches left", below, above, DirLeft, true},
		{"up does not match right", below, above, DirRight, false},
		{"no side change", above, BBox{55, 80, 66, 91}, DirAny, false},
		// Centers at (250,90) and (250,110): the path crosses the
		// infinite line but misses the segment.
		{"beyond segment end", BBox{245, 85, 256, 96}, BBox{245, 105, 256, 116}, DirAny, false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := CrossesLine(c.prev, c.cur, boundary, TrackCenter, c.dir); got != c.want {
				t.Errorf("CrossesLine = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCrossesLineStartOnBoundary(t *testing.T) {
	t.Parallel()

	boundary := Segment{X1: 0, Y1: 100, X2: 200, Y2: 100}

	// Center starts exactly on the boundary at (50,100), ends below at
	// (50,110). Never counts, for any direction.
	on := BBox{45, 95, 56, 106}
	below := BBox{45, 105, 56, 116}

	for _, dir := range []Direction{DirAny, DirLeft, DirRight} {
		if CrossesLine(on, below, boundary, TrackCenter, dir) {
			t.Errorf("start on boundary counted as crossing for %v", dir)
		}
	}
}

func TestCrossesLineVerticalBoundary(t *testing.T) {
	t.Parallel()

	boundary := Segment{X1: 100, Y1: 0, X2: 100, Y2: 200}

	// Centers at (90,50) and (110,50): left to right through the boundary.
	left := BBox{85, 45, 96, 56}
	right := BBox{105, 45, 116, 56}

	if !CrossesLine(left, right, boundary, TrackCenter, DirAny) {
		t.Error("horizontal move through vertical boundary not detected")
	}
	// Same horizontal move, but below the segment's end.
	lowLeft := BBox{85, 245, 96, 256}
	lowRight := BBox{105, 245, 116, 256}
	if CrossesLine(lowLeft, lowRight, boundary, TrackCenter, DirAny) {
		t.Error("move past the end of a vertical boundary counted as crossing")
	}
}

func TestPointInPolygon(t *testing.T) {
	t.Parallel()

	square := []Segment{
		{10, 10, 100, 10},
		{100, 10, 100, 100},
		{100, 100, 10, 100},
		{10, 100, 10, 10},
	}

	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{50, 50}, true},
		{"outside left", Point{5, 50}, false},
		{"outside right", Point{150, 50}, false},
		{"outside above", Point{50, 5}, false},
		{"outside below", Point{50, 150}, false},
		{"near corner inside", Point{11, 11}, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := PointInPolygon(square, c.p); got != c.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", c.p, got, c.want)
			}
		})
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	t.Parallel()

	// A "U" shape, clockwise: the notch between the prongs is outside.
	//
	//   (0,0)--(30,0)       (60,0)--(90,0)
	//     |       |           |       |
	//     |    (30,60)-----(60,60)    |
	//     |                           |
	//   (0,90)---------------------(90,90)
	u := []Point{
		{0, 0}, {30, 0}, {30, 60}, {60, 60}, {60, 0}, {90, 0}, {90, 90}, {0, 90},
	}
	edges := make([]Segment, len(u))
	for i := range u {
		next := u[(i+1)%len(u)]
		edges[i] = Segment{u[i].X, u[i].Y, next.X, next.Y}
	}

	if !PointInPolygon(edges, Point{15, 30}) {
		t.Error("left prong interior reported outside")
	}
	if !PointInPolygon(edges, Point{75, 30}) {
		t.Error("right prong interior reported outside")
	}
	if PointInPolygon(edges, Point{45, 30}) {
		t.Error("notch reported inside")
	}
	if !PointInPolygon(edges, Point{45, 75}) {
		t.Error("base interior reported outside")
	}
}

func TestObjectInPolygon(t *testing.T) {
	t.Parallel()

	square := []Segment{
		{10, 10, 100, 10},
		{100, 10, 100, 100},
		{100, 100, 10, 100},
		{10, 100, 10, 10},
	}

	// Box whose bottom is inside the square but whose top is above it.
	box := BBox{40, 0, 61, 51}
	if ObjectInPolygon(square, box, TrackTop) {
		t.Error("top tracking point should be outside")
	}
	if !ObjectInPolygon(square, box, TrackBottom) {
		t.Error("bottom tracking point should be inside")
	}
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	if _, err := ParseTrackPoint("middle"); err == nil {
		t.Error("expected error for unknown track point")
	}
	if tp, err := ParseTrackPoint("bottom"); err != nil || tp != TrackBottom {
		t.Errorf("ParseTrackPoint(bottom) = %v, %v", tp, err)
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if d, err := ParseDirection("left"); err != nil || d != DirLeft {
		t.Errorf("ParseDirection(left) = %v, %v", d, err)
	}
}
