package engine

import (
	"github.com/simonhull/firebird-suite/quill/internal/plan"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// State is the terminal state of a target
type State int

const (
	Skipped State = iota // provider already existed
	Written
	Failed
)

func (s State) String() string {
	switch s {
	case Written:
		return "written"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// TargetResult is the outcome for one planned provider
type TargetResult struct {
	Target plan.Target
	State  State
	Err    error
}

// Result is the outcome for one declaration. Err is set when the declaration
// failed before planning (invalid binding, colliding providers or
// cancellation).
type Result struct {
	Declaration schema.Declaration
	Targets     []TargetResult
	Err         error
	Repeated    bool // identical to an earlier declaration, not processed again
}

// Failed reports whether the declaration or any of its targets failed
func (r Result) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, t := range r.Targets {
		if t.State == Failed {
			return true
		}
	}
	return false
}

// Summary collects the results of a run in declaration order
type Summary struct {
	Results []Result
	Written int // targets written
	Skipped int // targets that already existed
	Failed  int // declarations with at least one failure
}

// OK reports whether every declaration succeeded
func (s *Summary) OK() bool {
	return s.Failed == 0
}

func summarize(results []Result) *Summary {
	s := &Summary{Results: results}
	for _, r := range results {
		if r.Failed() {
			s.Failed++
		}
		for _, t := range r.Targets {
			switch t.State {
			case Written:
				s.Written++
			case Skipped:
				s.Skipped++
			}
		}
	}
	return s
}
