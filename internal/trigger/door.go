package trigger

import (
	"fmt"

	"github.com/banshee-data/tripline/internal/geom"
)

// DoorDirection selects which passages through a doorway fire.
type DoorDirection int

const (
	DoorAny DoorDirection = iota
	DoorEntering
	DoorExiting
)

// ParseDoorDirection converts the serialized name of a door direction.
func ParseDoorDirection(s string) (DoorDirection, error) {
	switch s {
	case "any":
		return DoorAny, nil
	case "entering":
		return DoorEntering, nil
	case "exiting":
		return DoorExiting, nil
	}
	return 0, fmt.Errorf("unknown door direction %q", s)
}

func (d DoorDirection) String() string {
	switch d {
	case DoorAny:
		return "any"
	case DoorEntering:
		return "entering"
	case DoorExiting:
		return "exiting"
	}
	return fmt.Sprintf("DoorDirection(%d)", int(d))
}

// DoorTrigger fires when an object comes through a doorway: entering the
// scene means appearing inside the door footprint and then leaving it,
// exiting means an object's final position settling inside the footprint.
// An object that appears inside the footprint and disappears again without
// ever leaving it never fires; that is someone walking past a glass door,
// visible through it but never coming through.
type DoorTrigger struct {
	baseTrigger

	dm     DataManager
	region *RegionTrigger
	dir    DoorDirection

	// seenObjects is every object observed so far; doorOrigin is the
	// subset whose first observation was inside the footprint and which
	// have not yet been seen outside it.
	seenObjects map[int64]bool
	doorOrigin  map[int64]bool

	// timeStop is the stop bound of the most recent search; Finalize
	// refuses exits recorded past it.
	timeStop int64
}

// NewDoorTrigger creates a door trigger over the doorway's footprint.
func NewDoorTrigger(dm DataManager, region *geom.RegionDef, trackPoint geom.TrackPoint, dir DoorDirection) *DoorTrigger {
	return &DoorTrigger{
		dm:          dm,
		region:      NewRegionTrigger(dm, region, trackPoint, RegionOutside),
		dir:         dir,
		seenObjects: make(map[int64]bool),
		doorOrigin:  make(map[int64]bool),
		timeStop:    TimeUnbounded,
	}
}

// SetProcessingCoordSpace implements Trigger.
func (t *DoorTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	t.region.SetProcessingCoordSpace(space)
}

// Search implements Trigger. Each call finalizes objects that disappeared
// since the last one, records newly seen objects whose first position lies
// inside the footprint, then runs the inner outside-search restricted to
// those door-origin objects: any of them reported outside has come through
// the door.
func (t *DoorTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	entering := t.dir == DoorAny || t.dir == DoorEntering

	stepper := newProcSpaceStepper(procSizes, t.region.SetProcessingCoordSpace)

	t.timeStop = stop

	if mode == ModeSingle {
		t.Reset()
	}

	activeObjects, err := t.dm.GetObjectsBetweenTimes(start, stop)
	if err != nil {
		return nil, err
	}
	active := make(map[int64]bool, len(activeObjects))
	for _, id := range activeObjects {
		active[id] = true
	}

	// Objects that are gone now are complete; emit their exits.
	var departed []int64
	for id := range t.seenObjects {
		if !active[id] {
			departed = append(departed, id)
		}
	}
	triggered, err := t.Finalize(departed, procSizes)
	if err != nil {
		return nil, err
	}

	// New objects whose first position is inside the footprint join the
	// door-origin set.
	for _, id := range activeObjects {
		if t.seenObjects[id] {
			continue
		}
		t.seenObjects[id] = true

		box, _, objTime, ok, err := t.dm.GetFirstObjectBbox(id)
		if err != nil {
			return nil, err
		}
		if !ok || !afterStart(objTime, start) {
			continue
		}

		stepper.advance(objTime)

		if t.region.objectInside(box) {
			t.doorOrigin[id] = true
		}
	}

	if len(t.doorOrigin) > 0 {
		results, err := t.region.search(start, stop, ModeSingle, procSizes, t.doorOrigin)
		if err != nil {
			return nil, err
		}

		// A door-origin object reported outside the footprint has come
		// through. The inner search can report an object many times, so
		// only the first fire per object counts.
		for _, m := range results {
			if t.doorOrigin[m.ObjectID] {
				if entering {
					triggered = append(triggered, m)
				}
				delete(t.doorOrigin, m.ObjectID)
			}
		}
	}

	if mode == ModeSingle {
		final, err := t.Finalize(activeObjects, procSizes)
		if err != nil {
			return nil, err
		}
		triggered = append(triggered, final...)
	}

	return triggered, nil
}

// Finalize implements Trigger: for each completed object whose final
// position lies inside the footprint and which had left it at some point
// (it is no longer in the door-origin set), emit an exit.
func (t *DoorTrigger) Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error) {
	if t.dir != DoorAny && t.dir != DoorExiting {
		return nil, nil
	}

	stepper := newProcSpaceStepper(procSizes, t.region.SetProcessingCoordSpace)

	var triggered []Match
	for _, id := range objIDs {
		delete(t.seenObjects, id)

		if t.doorOrigin[id] {
			// Never left the doorway; the glass-door case. Drop it.
			delete(t.doorOrigin, id)
			continue
		}

		frame, endTime, err := t.dm.GetObjectFinalTime(id)
		if err != nil {
			return nil, err
		}
		box, ok, err := t.dm.GetBboxAtFrame(id, frame)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		stepper.advance(endTime)

		if t.region.objectInside(box) && beforeStop(endTime, t.timeStop) {
			triggered = append(triggered, Match{id, frame, endTime})
		}
	}

	return triggered, nil
}

// SearchForRanges implements Trigger.
func (t *DoorTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *DoorTrigger) Reset() {
	t.seenObjects = make(map[int64]bool)
	t.doorOrigin = make(map[int64]bool)
	t.region.Reset()
}

// SetDataManager implements Trigger.
func (t *DoorTrigger) SetDataManager(dm DataManager) {
	t.dm = dm
	t.region.SetDataManager(dm)
}

// PlayTimeOffset implements Trigger. Playback backs up to show the
// approach to the door.
func (t *DoorTrigger) PlayTimeOffset() (int64, bool) {
	return 3000, false
}

// VideoDebugShapes implements Trigger.
func (t *DoorTrigger) VideoDebugShapes() []geom.Shape {
	return t.region.VideoDebugShapes()
}

// SpatiallyAware implements Trigger.
func (t *DoorTrigger) SpatiallyAware() bool {
	return true
}
