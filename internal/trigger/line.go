package trigger

import (
	"github.com/banshee-data/tripline/internal/geom"
)

// LineTrigger fires when an object's tracking point crosses a boundary
// line in the line's configured direction.
type LineTrigger struct {
	baseTrigger

	dm         DataManager
	def        *geom.LineSegmentDef
	trackPoint geom.TrackPoint

	// line is the boundary in the current processing coordinate space.
	// The direction is fixed at construction.
	line geom.Segment
	dir  geom.Direction

	// prevBoxes carries the last observation per object across realtime
	// searches.
	prevBoxes map[int64]BoxObservation

	// searchData, when set, is used instead of querying the store. A
	// parent region trigger uses this to fan one query out to its edge
	// triggers.
	searchData []BoxObservation
}

// NewLineTrigger creates a line trigger for the given boundary definition.
func NewLineTrigger(dm DataManager, def *geom.LineSegmentDef, trackPoint geom.TrackPoint) *LineTrigger {
	return &LineTrigger{
		dm:         dm,
		def:        def,
		trackPoint: trackPoint,
		line:       def.Points(nil),
		dir:        def.Direction(),
		prevBoxes:  make(map[int64]BoxObservation),
	}
}

// SetProcessingCoordSpace rescales the boundary from the definition's own
// space into the space the queried boxes are expressed in.
func (t *LineTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	t.line = t.def.Points(&space)
}

// SetSearchData supplies pre-fetched observations for the next Search call,
// which will consume them instead of querying the store.
func (t *LineTrigger) SetSearchData(boxes []BoxObservation) {
	t.searchData = boxes
}

// Search walks consecutive observation pairs per object and emits a match
// at the current observation whenever the tracking point crossed the
// boundary. In realtime mode the previous observation of each object is
// carried over from the last call, with entries older than the staleness
// window pruned first.
func (t *LineTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	stepper := newProcSpaceStepper(procSizes, t.SetProcessingCoordSpace)

	boxes := t.searchData
	t.searchData = nil
	if len(boxes) == 0 {
		objIDs, err := t.dm.GetObjectsBetweenTimes(start, stop)
		if err != nil {
			return nil, err
		}
		boxes, err = t.dm.GetObjectBboxesBetweenTimes(objIDs, start, stop)
		if err != nil {
			return nil, err
		}
	}

	var prev map[int64]BoxObservation
	if mode == ModeRealtime {
		prev = t.prevBoxes
		for id, obs := range prev {
			if start-obs.TimeMs > staleObjectMs {
				delete(prev, id)
			}
		}
	} else {
		prev = make(map[int64]BoxObservation)
	}

	var triggered []Match
	for _, obs := range boxes {
		prevObs, havePrev := prev[obs.ObjectID]
		prev[obs.ObjectID] = obs

		if !havePrev {
			continue
		}

		stepper.advance(obs.TimeMs)

		if geom.CrossesLine(prevObs.Box, obs.Box, t.line, t.trackPoint, t.dir) {
			triggered = append(triggered, Match{obs.ObjectID, obs.Frame, obs.TimeMs})
		}
	}

	return triggered, nil
}

// SearchForRanges implements Trigger.
func (t *LineTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *LineTrigger) Reset() {
	t.prevBoxes = make(map[int64]BoxObservation)
}

// SetDataManager implements Trigger.
func (t *LineTrigger) SetDataManager(dm DataManager) {
	t.dm = dm
}

// VideoDebugShapes implements Trigger.
func (t *LineTrigger) VideoDebugShapes() []geom.Shape {
	return []geom.Shape{t.def}
}

// SpatiallyAware implements Trigger.
func (t *LineTrigger) SpatiallyAware() bool {
	return true
}
