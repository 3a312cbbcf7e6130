// Package rule turns saved rule definitions into runnable trigger trees
// and drives their evaluation against a trajectory store.
package rule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tripline/internal/geom"
	"github.com/banshee-data/tripline/internal/trigger"
)

// Rule is a compiled rule: identity, scoping, and the trigger tree that
// evaluates it.
type Rule struct {
	ID      uuid.UUID
	Name    string
	Camera  string
	Enabled bool

	Schedule *ScheduleDef

	Root trigger.Trigger
}

// ClipHints is what a clip cutter needs to know about a rule's fires.
type ClipHints struct {
	PlayOffsetMs   int64
	PreserveOffset bool
	RewindMs       int64
	ExtendMs       int64
	CombineClips   bool
}

// Hints returns the rule's clip sizing hints.
func (r *Rule) Hints() ClipHints {
	ms, preserve := r.Root.PlayTimeOffset()
	rewind, extend := trigger.ClipLengthOffsets(r.Root)
	return ClipHints{
		PlayOffsetMs:   ms,
		PreserveOffset: preserve,
		RewindMs:       rewind,
		ExtendMs:       extend,
		CombineClips:   r.Root.ShouldCombineClips(),
	}
}

// ArmedAt reports whether the rule's schedule covers the wall-clock time.
func (r *Rule) ArmedAt(t time.Time) bool {
	if r.Schedule == nil {
		return true
	}
	minute := t.Hour()*60 + t.Minute()
	start, stop := r.Schedule.StartMinute, r.Schedule.StopMinute
	if start <= stop {
		return minute >= start && minute < stop
	}
	// Wraps past midnight.
	return minute >= start || minute < stop
}

// Compile builds the trigger tree a Def describes, bound to the store.
func Compile(def *Def, dm trigger.DataManager) (*Rule, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	r := &Rule{
		ID:       uuid.New(),
		Name:     "unnamed rule",
		Enabled:  true,
		Schedule: def.Schedule,
	}
	if def.ID != nil {
		id, err := uuid.Parse(*def.ID)
		if err != nil {
			return nil, fmt.Errorf("parse rule id: %w", err)
		}
		r.ID = id
	}
	if def.Name != nil {
		r.Name = *def.Name
	}
	if def.Camera != nil {
		r.Camera = *def.Camera
	}
	if def.Enabled != nil {
		r.Enabled = *def.Enabled
	}

	space := geom.CoordSpace{Width: 320, Height: 240}
	if def.CoordWidth != nil {
		space.Width = *def.CoordWidth
	}
	if def.CoordHeight != nil {
		space.Height = *def.CoordHeight
	}

	// The spatial part may be instantiated more than once (a duration
	// band wraps it twice), so build it through a factory.
	makeBase, err := baseFactory(def.Where, space, dm)
	if err != nil {
		return nil, err
	}

	root, err := wrapDuration(def.Duration, makeBase)
	if err != nil {
		return nil, err
	}

	if def.MinHeight != nil && *def.MinHeight > 0 {
		root = trigger.NewMinSizeTrigger(dm, *def.MinHeight, root)
	}
	if len(def.Targets) > 0 {
		targets := make([]trigger.Target, len(def.Targets))
		for i, t := range def.Targets {
			action := t.Action
			if action == "" {
				action = "any"
			}
			targets[i] = trigger.Target{Class: t.Class, Action: action}
		}
		root = trigger.NewTargetTrigger(dm, targets, root)
	}

	r.Root = root
	return r, nil
}

// baseFactory returns a constructor for the rule's spatial trigger.
func baseFactory(where *WhereDef, space geom.CoordSpace, dm trigger.DataManager) (func() (trigger.Trigger, error), error) {
	kind := "full_frame"
	if where != nil && where.Kind != nil {
		kind = *where.Kind
	}

	trackPoint := geom.TrackCenter
	if where != nil && where.TrackPoint != nil {
		tp, err := geom.ParseTrackPoint(*where.TrackPoint)
		if err != nil {
			return nil, err
		}
		trackPoint = tp
	}

	switch kind {
	case "line":
		dir := geom.DirAny
		if where.Direction != nil {
			d, err := geom.ParseDirection(*where.Direction)
			if err != nil {
				return nil, err
			}
			dir = d
		}
		p1, p2 := where.Points[0], where.Points[1]
		seg := geom.Segment{X1: p1[0], Y1: p1[1], X2: p2[0], Y2: p2[1]}
		return func() (trigger.Trigger, error) {
			return trigger.NewLineTrigger(dm, geom.NewLineSegmentDef(seg, dir, &space), trackPoint), nil
		}, nil

	case "region":
		regionKind := trigger.RegionInside
		if where.RegionKind != nil {
			k, err := trigger.ParseRegionKind(*where.RegionKind)
			if err != nil {
				return nil, err
			}
			regionKind = k
		}
		points := defPoints(where.Points)
		return func() (trigger.Trigger, error) {
			region, err := geom.NewRegionDef(points, &space)
			if err != nil {
				return nil, fmt.Errorf("region rule: %w", err)
			}
			return trigger.NewRegionTrigger(dm, region, trackPoint, regionKind), nil
		}, nil

	case "door":
		doorDir := trigger.DoorAny
		if where.DoorDirection != nil {
			d, err := trigger.ParseDoorDirection(*where.DoorDirection)
			if err != nil {
				return nil, err
			}
			doorDir = d
		}
		points := defPoints(where.Points)
		return func() (trigger.Trigger, error) {
			region, err := geom.NewRegionDef(points, &space)
			if err != nil {
				return nil, fmt.Errorf("door rule: %w", err)
			}
			return trigger.NewDoorTrigger(dm, region, trackPoint, doorDir), nil
		}, nil

	case "scene":
		enterExit := trigger.EnterExitBoth
		if where.EnterExit != nil {
			k, err := trigger.ParseEnterExitKind(*where.EnterExit)
			if err != nil {
				return nil, err
			}
			enterExit = k
		}
		return func() (trigger.Trigger, error) {
			return trigger.NewEnterExitTrigger(dm, enterExit), nil
		}, nil

	case "", "full_frame":
		// Anything moving anywhere in the frame.
		points := []geom.Point{
			{X: 0, Y: 0},
			{X: space.Width - 1, Y: 0},
			{X: space.Width - 1, Y: space.Height - 1},
			{X: 0, Y: space.Height - 1},
		}
		return func() (trigger.Trigger, error) {
			region, err := geom.NewRegionDef(points, &space)
			if err != nil {
				return nil, fmt.Errorf("full-frame rule: %w", err)
			}
			return trigger.NewRegionTrigger(dm, region, trackPoint, trigger.RegionInside), nil
		}, nil
	}

	return nil, fmt.Errorf("unknown where kind %q", kind)
}

func defPoints(pts [][2]int) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = geom.Point{X: p[0], Y: p[1]}
	}
	return out
}

// wrapDuration applies the duration band. Both bounds set compiles into
// an AND over two duration triggers, each with its own copy of the
// spatial tree, tied to the same object.
func wrapDuration(d *DurationDef, makeBase func() (trigger.Trigger, error)) (trigger.Trigger, error) {
	base, err := makeBase()
	if err != nil {
		return nil, err
	}
	if d == nil || (d.MoreThanMs == nil && d.LessThanMs == nil) {
		return base, nil
	}

	if d.MoreThanMs != nil && d.LessThanMs != nil {
		more := trigger.NewDurationTrigger(base, *d.MoreThanMs, true)
		secondBase, err := makeBase()
		if err != nil {
			return nil, err
		}
		less := trigger.NewDurationTrigger(secondBase, *d.LessThanMs, false)
		return trigger.NewBinaryTrigger(trigger.OpAnd, []trigger.Trigger{more, less}, true, false)
	}

	if d.MoreThanMs != nil {
		return trigger.NewDurationTrigger(base, *d.MoreThanMs, true), nil
	}
	return trigger.NewDurationTrigger(base, *d.LessThanMs, false), nil
}
