package trigger

import (
	"testing"

	"github.com/banshee-data/tripline/internal/geom"
)

// testRegion returns the square (10,10)-(100,100) as a region definition.
func testRegion(t *testing.T) *geom.RegionDef {
	t.Helper()
	r, err := geom.NewRegionDef([]geom.Point{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 100, Y: 100}, {X: 10, Y: 100}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegionTriggerInsideOutsidePartition(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	// Inside, inside, outside, outside.
	store.addBox(1, 1, 1000, boxAround(50, 50))
	store.addBox(1, 2, 1100, boxAround(60, 60))
	store.addBox(1, 3, 1200, boxAround(150, 50))
	store.addBox(1, 4, 1300, boxAround(160, 50))

	inside := NewRegionTrigger(store, testRegion(t), geom.TrackCenter, RegionInside)
	outside := NewRegionTrigger(store, testRegion(t), geom.TrackCenter, RegionOutside)

	in, err := inside.Search(TimeUnbounded, TimeUnbounded, ModeSingle, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := outside.Search(TimeUnbounded, TimeUnbounded, ModeSingle, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Every sample lands in exactly one of the two result sets.
	if len(in)+len(out) != 4 {
		t.Fatalf("inside %v + outside %v don't cover all samples", in, out)
	}
	wantIn := []Match{{1, 1, 1000}, {1, 2, 1100}}
	wantOut := []Match{{1, 3, 1200}, {1, 4, 1300}}
	if !matchesEqual(in, wantIn) {
		t.Errorf("inside = %v, want %v", in, wantIn)
	}
	if !matchesEqual(out, wantOut) {
		t.Errorf("outside = %v, want %v", out, wantOut)
	}
}

func TestRegionTriggerRealtimeHighWater(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addBox(1, 1, 1000, boxAround(50, 50))
	store.addBox(1, 2, 1100, boxAround(60, 60))

	trig := NewRegionTrigger(store, testRegion(t), geom.TrackCenter, RegionInside)

	got, err := trig.Search(0, 2000, ModeRealtime, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("first call = %v", got)
	}

	// Same window again: everything is at or before the high-water mark.
	got, err = trig.Search(0, 2000, ModeRealtime, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("repeat call re-reported: %v", got)
	}

	// New sample past the mark is reported.
	store.addBox(1, 3, 2100, boxAround(70, 70))
	got, err = trig.Search(0, 3000, ModeRealtime, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []Match{{1, 3, 2100}}
	if !matchesEqual(got, want) {
		t.Errorf("after new sample = %v, want %v", got, want)
	}
}

func TestRegionTriggerEntering(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	// Walks in through the left edge, then back out: entering fires only
	// on the way in, exiting only on the way out.
	store.addBox(1, 1, 1000, boxAround(0, 50))
	store.addBox(1, 2, 1100, boxAround(50, 50))
	store.addBox(1, 3, 1200, boxAround(0, 50))

	entering := NewRegionTrigger(store, testRegion(t), geom.TrackCenter, RegionEntering)
	got, err := entering.Search(TimeUnbounded, TimeUnbounded, ModeSingle, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []Match{{1, 2, 1100}}
	if !matchesEqual(got, want) {
		t.Errorf("entering = %v, want %v", got, want)
	}

	exiting := NewRegionTrigger(store, testRegion(t), geom.TrackCenter, RegionExiting)
	got, err = exiting.Search(TimeUnbounded, TimeUnbounded, ModeSingle, nil)
	if err != nil {
		t.Fatal(err)
	}
	want = []Match{{1, 3, 1200}}
	if !matchesEqual(got, want) {
		t.Errorf("exiting = %v, want %v", got, want)
	}

	crosses := NewRegionTrigger(store, testRegion(t), geom.TrackCenter, RegionCrosses)
	got, err = crosses.Search(TimeUnbounded, TimeUnbounded, ModeSingle, nil)
	if err != nil {
		t.Fatal(err)
	}
	want = []Match{{1, 2, 1100}, {1, 3, 1200}}
	if !matchesEqual(got, want) {
		t.Errorf("crosses = %v, want %v", got, want)
	}
}

func TestRegionTriggerCombineClips(t *testing.T) {
	t.Parallel()

	region := testRegion(t)
	if !NewRegionTrigger(nil, region, geom.TrackCenter, RegionInside).ShouldCombineClips() {
		t.Error("inside should combine clips")
	}
	if NewRegionTrigger(nil, region, geom.TrackCenter, RegionCrosses).ShouldCombineClips() {
		t.Error("crosses should not combine clips")
	}
}
