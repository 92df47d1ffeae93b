package coin

import (
	"fmt"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
	"github.com/chazu/coinrelief/pkg/relief"
)

// Run is the state of one pipeline execution. Each stage reads what the
// previous stage left here and records its own output.
type Run struct {
	Config Config
	Stage  Stage

	// Objects and Meshes count what the importer returned.
	Objects int
	Meshes  int

	// Mesh is the merged source mesh, transformed in place by
	// normalization and projection.
	Mesh       *geom.Mesh
	Fit        relief.Fit
	Projection relief.Projection

	// Base is the generated base cylinder, nil when SkipBase is set.
	Base *geom.Mesh
	// Result is the exported mesh.
	Result *geom.Mesh

	// Findings are the solid checks made on the merged mesh at import.
	// Only warnings survive a successful import.
	Findings []geom.ValidationError

	// Diagnoses holds the operand checks made before each boolean,
	// keyed by operand name.
	Diagnoses map[string]kernel.Diagnosis

	// Err is the error that moved the run to StageFailed.
	Err error
}

func newRun(cfg Config) *Run {
	return &Run{
		Config:    cfg,
		Stage:     StageNew,
		Diagnoses: map[string]kernel.Diagnosis{},
	}
}

// sliced reports whether the run goes through StageSliced.
func (r *Run) sliced() bool {
	return r.Config.Relief.Algorithm.NeedsBackCut()
}

// advance moves the run to next, or fails with ErrInvalidTransition.
func (r *Run) advance(next Stage) error {
	if !r.Stage.canAdvance(next, r.sliced()) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Stage, next)
	}
	r.Stage = next
	return nil
}

// fail records err against the stage that was being attempted and moves
// the run to StageFailed.
func (r *Run) fail(attempted Stage, err error) error {
	serr := &StageError{Stage: attempted, Err: err}
	r.Err = serr
	r.Stage = StageFailed
	return serr
}
