// Package trigger evaluates spatio-temporal rules over tracked-object
// trajectories: line crossings, region containment, door passages, scene
// enter/exit, size filtering and the combinators that join them. Triggers
// form a tree; evaluation is synchronous and single-threaded, driven either
// once over a completed time range (Single) or repeatedly on a cadence with
// continuation state carried between calls (Realtime).
package trigger

import (
	"fmt"
	"sort"

	"github.com/banshee-data/tripline/internal/geom"
)

// TimeUnbounded marks an open time bound: a start of TimeUnbounded means
// "from the beginning of recorded data", a stop of TimeUnbounded means
// "through the present".
const TimeUnbounded int64 = -1

// staleObjectMs is how long an object may go unobserved in realtime mode
// before its continuation state is discarded.
const staleObjectMs = 5000

// Default clip sizing applied around fires when cutting video.
const (
	clipRewindMs = 5000
	clipExtendMs = 10000
)

// Mode selects how a search treats the underlying data.
type Mode int

const (
	// ModeSingle presumes the database is complete for the queried range.
	ModeSingle Mode = iota
	// ModeRealtime maintains continuation state between repeated calls.
	ModeRealtime
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeRealtime:
		return "realtime"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Match is a single trigger fire: an object at a frame and time.
type Match struct {
	ObjectID int64
	Frame    int64
	TimeMs   int64
}

// MarkPoint is a (time, frame) pair bounding one end of a range.
type MarkPoint struct {
	TimeMs int64
	Frame  int64
}

// Range is a contiguous run of fires for one object, used when the caller
// wants clip boundaries rather than individual fires. Location carries the
// camera location when the store produced the range directly; it is empty
// for ranges derived from individual matches.
type Range struct {
	ObjectID int64
	First    MarkPoint
	Last     MarkPoint
	Location string
}

// ProcSizeSpan records the resolution video was processed at over a time
// span. A single-element timeline means the size never changed and its
// bounds are ignored; a multi-element timeline switches the processing
// coordinate space at the recorded LastMs boundaries as a search walks
// forward in time.
type ProcSizeSpan struct {
	Width   int
	Height  int
	FirstMs int64
	LastMs  int64
}

// BoxObservation is one stored bounding box of a tracked object.
type BoxObservation struct {
	Box      geom.BBox
	Frame    int64
	TimeMs   int64
	ObjectID int64
}

// Target restricts matching to an object class, optionally doing a
// particular action. Action "any" matches all actions.
type Target struct {
	Class  string
	Action string
}

// DataManager is the trajectory store a trigger tree searches. Time bounds
// of TimeUnbounded are open. The size and target filters are shared mutable
// state on the store: a trigger that sets one must clear it before
// returning, and filters do not nest.
type DataManager interface {
	// GetObjectsBetweenTimes returns the ids of objects observed at any
	// point within the time range, honoring any active filters.
	GetObjectsBetweenTimes(start, stop int64) ([]int64, error)

	// GetObjectBboxesBetweenTimes returns every stored box of the given
	// objects within the time range, ordered by object id then time.
	GetObjectBboxesBetweenTimes(objIDs []int64, start, stop int64) ([]BoxObservation, error)

	// GetFirstObjectBbox returns an object's first stored box with its
	// frame and time. ok is false when the object has no boxes.
	GetFirstObjectBbox(objID int64) (box geom.BBox, frame, timeMs int64, ok bool, err error)

	// GetObjectFinalTime returns the frame and time of an object's last
	// observation.
	GetObjectFinalTime(objID int64) (frame, timeMs int64, err error)

	// GetBboxAtFrame returns the box stored for an object at a frame.
	GetBboxAtFrame(objID, frame int64) (box geom.BBox, ok bool, err error)

	// GetObjectStartTime returns the time of an object's first
	// observation.
	GetObjectStartTime(objID int64) (int64, error)

	// GetFrameAtTime returns the frame an object was observed at near the
	// given time, or -1 if none is recorded.
	GetFrameAtTime(objID, timeMs int64) (int64, error)

	// GetObjectRangesBetweenTimes returns, for each object observed in
	// the time range, the (first, last) observation pair, honoring any
	// active filters.
	GetObjectRangesBetweenTimes(start, stop int64) ([]Range, error)

	// SetMinSizeFilter restricts subsequent queries to objects whose
	// maximum observed height is at least minHeight. Zero clears the
	// filter.
	SetMinSizeFilter(minHeight int) error

	// SetTargetFilter restricts subsequent queries to objects matching
	// one of the targets within the time range. A nil target list clears
	// the filter.
	SetTargetFilter(targets []Target, start, stop int64) error
}

// Trigger is one node of a rule's evaluation tree.
type Trigger interface {
	// Search evaluates the trigger over [start, stop] and returns its
	// fires. In ModeRealtime, continuation state persists across calls.
	Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error)

	// SearchForRanges evaluates like a ModeSingle Search but compresses
	// contiguous fires of each object into ranges.
	SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error)

	// Finalize emits any fires that were held back waiting for more data,
	// for objects that are now known to be complete.
	Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error)

	// Reset discards all continuation state.
	Reset()

	// SetDataManager swaps the store the trigger (and its children)
	// search.
	SetDataManager(dm DataManager)

	// SetProcessingCoordSpace rescales the trigger's geometry to the
	// coordinate space the queried boxes are expressed in. Only
	// spatially aware triggers do anything here.
	SetProcessingCoordSpace(space geom.CoordSpace)

	// SpatiallyAware reports whether the trigger (or any descendant)
	// uses geometry, and therefore cares about coordinate spaces.
	SpatiallyAware() bool

	// PlayTimeOffset returns how far before the first fire playback
	// should start, and whether clips should preserve that offset when
	// possible.
	PlayTimeOffset() (msOffset int64, preserve bool)

	// ShouldCombineClips reports whether overlapping clips from this
	// trigger should be merged.
	ShouldCombineClips() bool

	// VideoDebugShapes returns the trigger geometry for overlay
	// rendering.
	VideoDebugShapes() []geom.Shape
}

// ClipLengthOffsets returns how far a clip should rewind before the first
// fire and extend past the last one.
func ClipLengthOffsets(t Trigger) (rewindMs, extendMs int64) {
	ms, _ := t.PlayTimeOffset()
	return clipRewindMs + ms, clipExtendMs
}

// baseTrigger supplies the defaults shared by trigger implementations.
type baseTrigger struct{}

func (baseTrigger) Finalize([]int64, []ProcSizeSpan) ([]Match, error) { return nil, nil }
func (baseTrigger) Reset()                                            {}
func (baseTrigger) SetProcessingCoordSpace(geom.CoordSpace)           {}
func (baseTrigger) SpatiallyAware() bool                              { return false }
func (baseTrigger) PlayTimeOffset() (int64, bool)                     { return 0, false }
func (baseTrigger) ShouldCombineClips() bool                          { return false }
func (baseTrigger) VideoDebugShapes() []geom.Shape                    { return nil }

// deriveRanges compresses per-frame matches into per-object ranges: runs of
// strictly consecutive frames extend a range, any gap starts a new one.
// Output order groups by object but is otherwise unspecified.
func deriveRanges(matches []Match) []Range {
	sorted := append([]Match(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ObjectID != sorted[j].ObjectID {
			return sorted[i].ObjectID < sorted[j].ObjectID
		}
		return sorted[i].Frame < sorted[j].Frame
	})

	var out []Range
	lastFrame := make(map[int64]int64)
	open := make(map[int64]Range)

	for _, m := range sorted {
		last, seen := lastFrame[m.ObjectID]
		if !seen {
			open[m.ObjectID] = Range{
				ObjectID: m.ObjectID,
				First:    MarkPoint{m.TimeMs, m.Frame},
				Last:     MarkPoint{m.TimeMs, m.Frame},
			}
		} else if m.Frame == last+1 {
			r := open[m.ObjectID]
			r.Last = MarkPoint{m.TimeMs, m.Frame}
			open[m.ObjectID] = r
		} else {
			out = append(out, open[m.ObjectID])
			open[m.ObjectID] = Range{
				ObjectID: m.ObjectID,
				First:    MarkPoint{m.TimeMs, m.Frame},
				Last:     MarkPoint{m.TimeMs, m.Frame},
			}
		}
		lastFrame[m.ObjectID] = m.Frame
	}

	for _, r := range open {
		out = append(out, r)
	}
	return out
}

// searchRanges is the generic SearchForRanges used by triggers without an
// optimized store-side version.
func searchRanges(t Trigger, start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	matches, err := t.Search(start, stop, ModeSingle, procSizes)
	if err != nil {
		return nil, err
	}
	return deriveRanges(matches), nil
}

// procSpaceStepper applies the processing coordinate space while a search
// walks forward in time, switching at the recorded span boundaries. apply
// is called immediately for the first span.
type procSpaceStepper struct {
	spans    []ProcSizeSpan
	apply    func(geom.CoordSpace)
	unique   bool
	changeAt int64
}

func newProcSpaceStepper(spans []ProcSizeSpan, apply func(geom.CoordSpace)) *procSpaceStepper {
	s := &procSpaceStepper{spans: spans, apply: apply, unique: true}
	if len(spans) == 0 {
		return s
	}
	apply(geom.CoordSpace{Width: spans[0].Width, Height: spans[0].Height})
	if len(spans) > 1 {
		s.unique = false
		s.changeAt = spans[0].LastMs
	}
	return s
}

// advance switches the coordinate space if timeMs has moved past the
// current span's end.
func (s *procSpaceStepper) advance(timeMs int64) {
	if s.unique || timeMs <= s.changeAt {
		return
	}
	for _, sp := range s.spans {
		if timeMs >= sp.FirstMs && timeMs <= sp.LastMs {
			s.apply(geom.CoordSpace{Width: sp.Width, Height: sp.Height})
			s.changeAt = sp.LastMs
		}
	}
}

// afterStart reports whether t falls at or after an optionally unbounded
// start time.
func afterStart(t, start int64) bool {
	return start == TimeUnbounded || t >= start
}

// beforeStop reports whether t falls at or before an optionally unbounded
// stop time.
func beforeStop(t, stop int64) bool {
	return stop == TimeUnbounded || t <= stop
}
