package coin

import "fmt"

// Stage is the position of a run in the pipeline.
type Stage int

const (
	StageNew Stage = iota
	StageImported
	StageNormalized
	StageProjected
	StageSliced
	StageCombined
	StageExported
	StageFailed
)

var stageNames = [...]string{
	StageNew:        "new",
	StageImported:   "imported",
	StageNormalized: "normalized",
	StageProjected:  "projected",
	StageSliced:     "sliced",
	StageCombined:   "combined",
	StageExported:   "exported",
	StageFailed:     "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageExported || s == StageFailed
}

// canAdvance reports whether a run may move from s to next. Stages are
// visited in order; Sliced may be skipped, and any live stage may fail.
func (s Stage) canAdvance(next Stage, sliced bool) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	want := s + 1
	if want == StageSliced && !sliced {
		want = StageCombined
	}
	return next == want
}
