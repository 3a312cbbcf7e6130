package rule

import (
	"fmt"

	"github.com/banshee-data/tripline/internal/trigger"
)

// Runner drives a rule's trigger tree over a time range, either in one
// single-mode pass or piecemeal in realtime mode with a fixed increment,
// the way a live pipeline would feed it.
type Runner struct {
	rule        *Rule
	incrementMs int64
}

// NewRunner creates a runner. incrementMs <= 0 means a single whole-range
// search instead of piecemeal evaluation.
func NewRunner(r *Rule, incrementMs int64) *Runner {
	return &Runner{rule: r, incrementMs: incrementMs}
}

// Run evaluates the rule over [start, stop]. Piecemeal runs require bounded
// times since the increment walks from start to stop.
func (rn *Runner) Run(start, stop int64, procSizes []trigger.ProcSizeSpan) ([]trigger.Match, error) {
	if rn.incrementMs <= 0 {
		return rn.rule.Root.Search(start, stop, trigger.ModeSingle, procSizes)
	}

	if start == trigger.TimeUnbounded || stop == trigger.TimeUnbounded {
		return nil, fmt.Errorf("piecemeal run needs bounded start and stop times")
	}

	rn.rule.Root.Reset()

	var all []trigger.Match
	for cur := start; cur <= stop; cur += rn.incrementMs {
		end := cur + rn.incrementMs - 1
		if end > stop {
			end = stop
		}
		matches, err := rn.rule.Root.Search(cur, end, trigger.ModeRealtime, procSizes)
		if err != nil {
			return nil, fmt.Errorf("search window [%d, %d]: %w", cur, end, err)
		}
		all = append(all, matches...)
	}
	return all, nil
}

// Finish finalizes the given completed objects after a piecemeal run,
// returning any held-back fires.
func (rn *Runner) Finish(objIDs []int64, procSizes []trigger.ProcSizeSpan) ([]trigger.Match, error) {
	return rn.rule.Root.Finalize(objIDs, procSizes)
}
