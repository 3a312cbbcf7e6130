package trigger

import (
	"fmt"

	"github.com/banshee-data/tripline/internal/geom"
)

// RegionKind selects what a RegionTrigger watches for.
type RegionKind int

const (
	// RegionEntering fires when an object crosses into the region.
	RegionEntering RegionKind = iota
	// RegionExiting fires when an object crosses out of the region.
	RegionExiting
	// RegionCrosses fires on crossings in either direction.
	RegionCrosses
	// RegionInside fires for every sample with the object in the region.
	RegionInside
	// RegionOutside fires for every sample with the object outside.
	RegionOutside
)

// ParseRegionKind converts the serialized name of a region alert kind.
func ParseRegionKind(s string) (RegionKind, error) {
	switch s {
	case "entering":
		return RegionEntering, nil
	case "exiting":
		return RegionExiting, nil
	case "crosses":
		return RegionCrosses, nil
	case "inside":
		return RegionInside, nil
	case "outside":
		return RegionOutside, nil
	}
	return 0, fmt.Errorf("unknown region kind %q", s)
}

func (k RegionKind) String() string {
	switch k {
	case RegionEntering:
		return "entering"
	case RegionExiting:
		return "exiting"
	case RegionCrosses:
		return "crosses"
	case RegionInside:
		return "inside"
	case RegionOutside:
		return "outside"
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

// boundaryKind reports whether the kind is evaluated by decomposing the
// region boundary into per-edge line triggers.
func (k RegionKind) boundaryKind() bool {
	return k == RegionEntering || k == RegionExiting || k == RegionCrosses
}

// RegionTrigger fires on containment or boundary crossing of a polygonal
// zone. Containment kinds (inside/outside) test every sample directly;
// crossing kinds decompose the boundary into one LineTrigger per edge, the
// edge direction derived from the polygon's clockwise winding: an object
// entering crosses an edge rightward relative to the edge's orientation,
// an object exiting crosses leftward.
type RegionTrigger struct {
	baseTrigger

	dm         DataManager
	region     *geom.RegionDef
	trackPoint geom.TrackPoint
	kind       RegionKind

	// edges is the boundary in the current processing coordinate space,
	// used by the containment test.
	edges []geom.Segment

	// lastTime is the realtime high-water mark for containment kinds:
	// samples at or before it were already reported by an earlier call.
	lastTime int64

	edgeTriggers []*LineTrigger
}

// NewRegionTrigger creates a region trigger over the given zone.
func NewRegionTrigger(dm DataManager, region *geom.RegionDef, trackPoint geom.TrackPoint, kind RegionKind) *RegionTrigger {
	t := &RegionTrigger{
		dm:         dm,
		region:     region,
		trackPoint: trackPoint,
		kind:       kind,
		edges:      region.Edges(nil),
		lastTime:   -1,
	}

	edgeDir := geom.DirAny
	switch kind {
	case RegionEntering:
		edgeDir = geom.DirRight
	case RegionExiting:
		edgeDir = geom.DirLeft
	}

	for _, edge := range region.Edges(nil) {
		def := geom.NewLineSegmentDef(edge, edgeDir, region.CoordSpace())
		t.edgeTriggers = append(t.edgeTriggers, NewLineTrigger(dm, def, trackPoint))
	}

	return t
}

// SetProcessingCoordSpace rescales the containment edges. The per-edge
// line triggers rescale themselves from the processing size timeline they
// are handed during Search.
func (t *RegionTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	t.edges = t.region.Edges(&space)
}

// objectInside tests a box's tracking point against the region in the
// current processing coordinate space.
func (t *RegionTrigger) objectInside(box geom.BBox) bool {
	return geom.ObjectInPolygon(t.edges, box, t.trackPoint)
}

// Search implements Trigger.
func (t *RegionTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	return t.search(start, stop, mode, procSizes, nil)
}

// search additionally accepts an object id filter, used by DoorTrigger to
// restrict the scan to objects that originated inside the door footprint.
func (t *RegionTrigger) search(start, stop int64, mode Mode, procSizes []ProcSizeSpan, objIDFilter map[int64]bool) ([]Match, error) {
	if t.kind.boundaryKind() {
		return t.searchBoundary(start, stop, mode, procSizes, objIDFilter)
	}
	return t.searchContainment(start, stop, mode, procSizes, objIDFilter)
}

// searchBoundary runs the per-edge line triggers over one shared set of
// observations and unions their fires. A crossing exactly at a shared
// vertex can be reported by both adjacent edges; duplicates are kept and
// the output is unordered.
func (t *RegionTrigger) searchBoundary(start, stop int64, mode Mode, procSizes []ProcSizeSpan, objIDFilter map[int64]bool) ([]Match, error) {
	objIDs, err := t.dm.GetObjectsBetweenTimes(start, stop)
	if err != nil {
		return nil, err
	}
	objIDs = filterIDs(objIDs, objIDFilter)

	boxes, err := t.dm.GetObjectBboxesBetweenTimes(objIDs, start, stop)
	if err != nil {
		return nil, err
	}

	var triggered []Match
	for _, edge := range t.edgeTriggers {
		edge.SetSearchData(boxes)
		results, err := edge.Search(start, stop, mode, procSizes)
		if err != nil {
			return nil, err
		}
		triggered = append(triggered, results...)
	}
	return triggered, nil
}

func (t *RegionTrigger) searchContainment(start, stop int64, mode Mode, procSizes []ProcSizeSpan, objIDFilter map[int64]bool) ([]Match, error) {
	stepper := newProcSpaceStepper(procSizes, t.SetProcessingCoordSpace)

	objIDs, err := t.dm.GetObjectsBetweenTimes(start, stop)
	if err != nil {
		return nil, err
	}
	objIDs = filterIDs(objIDs, objIDFilter)

	boxes, err := t.dm.GetObjectBboxesBetweenTimes(objIDs, start, stop)
	if err != nil {
		return nil, err
	}

	var triggered []Match
	maxTime := int64(-1)

	for _, obs := range boxes {
		stepper.advance(obs.TimeMs)

		if mode == ModeRealtime {
			// Containment needs only a single frame, so suppress
			// samples an earlier call already reported.
			maxTime = max(maxTime, obs.TimeMs)
			if obs.TimeMs <= t.lastTime {
				continue
			}
		}

		inside := t.objectInside(obs.Box)
		if (inside && t.kind == RegionInside) || (!inside && t.kind == RegionOutside) {
			triggered = append(triggered, Match{obs.ObjectID, obs.Frame, obs.TimeMs})
		}
	}

	t.lastTime = maxTime
	return triggered, nil
}

// SearchForRanges implements Trigger.
func (t *RegionTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *RegionTrigger) Reset() {
	t.lastTime = -1
	for _, edge := range t.edgeTriggers {
		edge.Reset()
	}
}

// SetDataManager implements Trigger.
func (t *RegionTrigger) SetDataManager(dm DataManager) {
	t.dm = dm
	for _, edge := range t.edgeTriggers {
		edge.SetDataManager(dm)
	}
}

// ShouldCombineClips implements Trigger. Containment kinds fire every
// sample, so their clips overlap heavily and should merge.
func (t *RegionTrigger) ShouldCombineClips() bool {
	return t.kind == RegionInside || t.kind == RegionOutside
}

// VideoDebugShapes implements Trigger.
func (t *RegionTrigger) VideoDebugShapes() []geom.Shape {
	return []geom.Shape{t.region}
}

// SpatiallyAware implements Trigger.
func (t *RegionTrigger) SpatiallyAware() bool {
	return true
}

// filterIDs intersects ids with the filter set; a nil filter keeps all.
func filterIDs(ids []int64, filter map[int64]bool) []int64 {
	if filter == nil {
		return ids
	}
	kept := ids[:0:0]
	for _, id := range ids {
		if filter[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
