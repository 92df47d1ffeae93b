// Package coin runs the coin relief pipeline: import a scene, fit it onto
// the coin face, compress its depth, and join it to a cylindrical base.
package coin

import (
	"fmt"

	"github.com/chazu/coinrelief/pkg/base"
	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
	"github.com/chazu/coinrelief/pkg/relief"
	"github.com/chazu/coinrelief/pkg/sceneio"
	"github.com/sirupsen/logrus"
)

// Importer loads scene objects from a path.
type Importer interface {
	Import(path string) ([]sceneio.Object, error)
}

// Exporter writes a finished mesh to a path.
type Exporter interface {
	Export(m *geom.Mesh, path string) error
}

// Pipeline wires the collaborators of a run. Zero fields are filled in by
// Execute: the kernel from Config.Kernel, file based import and export,
// and the standard logger.
type Pipeline struct {
	Kernel   kernel.Kernel
	Importer Importer
	Exporter Exporter
	Log      logrus.FieldLogger
}

// Execute validates cfg and runs every stage in order. The returned Run
// is non-nil whenever cfg was valid, including on failure, and reflects
// how far the run got.
func (p *Pipeline) Execute(cfg Config) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p.fillDefaults()
	k := p.Kernel
	if k == nil {
		var err error
		if k, err = NewKernel(cfg.Kernel, cfg.Resolution); err != nil {
			return nil, err
		}
	}

	run := newRun(cfg)
	log := p.Log.WithFields(logrus.Fields{
		"input":     cfg.Input,
		"algorithm": cfg.Relief.Algorithm.String(),
		"kernel":    k.Name(),
	})

	steps := []struct {
		stage Stage
		fn    func(*Run, kernel.Kernel, logrus.FieldLogger) error
	}{
		{StageImported, p.importScene},
		{StageNormalized, p.normalize},
		{StageProjected, p.project},
		{StageSliced, p.slice},
		{StageCombined, p.combine},
		{StageExported, p.export},
	}
	for _, step := range steps {
		if step.stage == StageSliced && !run.sliced() {
			continue
		}
		if err := step.fn(run, k, log); err != nil {
			err = run.fail(step.stage, err)
			log.WithError(err).Error("pipeline failed")
			return run, err
		}
	}
	return run, nil
}

func (p *Pipeline) fillDefaults() {
	if p.Importer == nil {
		p.Importer = sceneio.Files{}
	}
	if p.Exporter == nil {
		p.Exporter = sceneio.Files{}
	}
	if p.Log == nil {
		p.Log = logrus.StandardLogger()
	}
}

func (p *Pipeline) importScene(run *Run, _ kernel.Kernel, log logrus.FieldLogger) error {
	objs, err := p.Importer.Import(run.Config.Input)
	if err != nil {
		return err
	}
	run.Objects = len(objs)
	if len(objs) == 0 {
		return ErrImportEmpty
	}
	meshes := sceneio.MeshObjects(objs)
	run.Meshes = len(meshes)
	if len(meshes) == 0 {
		return fmt.Errorf("%w: %d objects imported", ErrNoMeshObjects, len(objs))
	}

	parts := make([]*geom.Mesh, len(meshes))
	for i, o := range meshes {
		parts[i] = o.Mesh
	}
	run.Mesh = geom.Merge("relief", parts...)
	if run.Mesh.IsEmpty() {
		return fmt.Errorf("%w: mesh objects have no geometry", ErrImportEmpty)
	}
	run.Findings = run.Mesh.ValidateSolid()
	for _, f := range run.Findings {
		if f.Severity == geom.SeverityError {
			return fmt.Errorf("imported mesh is invalid: %w", f)
		}
		log.WithFields(logrus.Fields{
			"stage":   StageImported,
			"finding": f.Message,
		}).Warn("imported mesh is not a closed solid")
	}

	log.WithFields(logrus.Fields{
		"stage":    StageImported,
		"objects":  run.Objects,
		"meshes":   run.Meshes,
		"vertices": run.Mesh.VertexCount(),
		"faces":    run.Mesh.FaceCount(),
	}).Info("scene imported")
	return run.advance(StageImported)
}

func (p *Pipeline) normalize(run *Run, _ kernel.Kernel, log logrus.FieldLogger) error {
	rc := run.Config.Relief
	fit, err := relief.Normalize(run.Mesh, rc.Rotation, rc.Diameter, rc.EffectiveMargin())
	if err != nil {
		return err
	}
	run.Fit = fit

	entry := log.WithFields(logrus.Fields{
		"stage":  StageNormalized,
		"scale":  fit.Scale,
		"width":  fit.Bounds.Width(),
		"height": fit.Bounds.Height(),
	})
	if fit.Degenerate {
		entry.Warn("model has no X/Y extent, scaling skipped")
	} else {
		entry.Info("model fitted to coin face")
	}
	return run.advance(StageNormalized)
}

func (p *Pipeline) project(run *Run, _ kernel.Kernel, log logrus.FieldLogger) error {
	rc := run.Config.Relief
	proj, err := relief.Project(run.Mesh, rc.Algorithm, rc.Depth)
	if err != nil {
		return err
	}
	run.Projection = proj

	entry := log.WithFields(logrus.Fields{
		"stage":   StageProjected,
		"z_range": proj.ZRange,
		"z_scale": proj.ZScale,
		"samples": rc.Samples,
	})
	if proj.Degenerate {
		entry.Warn("model has no Z extent, depth compression skipped")
	} else {
		entry.Info("depth compressed")
	}
	entry.Debug("samples setting is not used by any algorithm")
	return run.advance(StageProjected)
}

// slice cuts away everything below z = 0 for algorithms that need it.
func (p *Pipeline) slice(run *Run, k kernel.Kernel, log logrus.FieldLogger) error {
	cutter := relief.BackCutter(run.Config.Relief.Diameter)
	out, err := p.boolean(run, k, log, k.Difference, run.Mesh, cutter)
	if err != nil {
		return err
	}
	run.Mesh = out
	log.WithFields(logrus.Fields{
		"stage":    StageSliced,
		"vertices": out.VertexCount(),
		"faces":    out.FaceCount(),
	}).Info("relief sliced at z=0")
	return run.advance(StageSliced)
}

func (p *Pipeline) combine(run *Run, k kernel.Kernel, log logrus.FieldLogger) error {
	cfg := run.Config
	if cfg.SkipBase {
		run.Result = run.Mesh
		log.WithField("stage", StageCombined).Info("base skipped")
		return run.advance(StageCombined)
	}

	alg := cfg.Relief.Algorithm
	b, err := base.Cylinder(cfg.Relief.Diameter, cfg.BaseThickness, cfg.EffectiveSegments(), alg.BasePlacement())
	if err != nil {
		return err
	}
	run.Base = b

	out, err := p.boolean(run, k, log, k.Union, run.Mesh, b)
	if err != nil {
		return err
	}
	run.Result = out
	log.WithFields(logrus.Fields{
		"stage":     StageCombined,
		"segments":  cfg.EffectiveSegments(),
		"placement": alg.BasePlacement().String(),
		"vertices":  out.VertexCount(),
		"faces":     out.FaceCount(),
	}).Info("relief joined to base")
	return run.advance(StageCombined)
}

func (p *Pipeline) export(run *Run, _ kernel.Kernel, log logrus.FieldLogger) error {
	if err := p.Exporter.Export(run.Result, run.Config.Output); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"stage":     StageExported,
		"output":    run.Config.Output,
		"triangles": run.Result.TriangleCount(),
	}).Info("solid exported")
	return run.advance(StageExported)
}

type booleanOp func(a, b kernel.Solid) (kernel.Solid, error)

// boolean checks both operands, converts them to solids, applies op and
// meshes the result. The operand solids are released on return.
func (p *Pipeline) boolean(run *Run, k kernel.Kernel, log logrus.FieldLogger, op booleanOp, a, b *geom.Mesh) (*geom.Mesh, error) {
	var solids [2]kernel.Solid
	for i, m := range []*geom.Mesh{a, b} {
		if err := p.checkOperand(run, k, log, m); err != nil {
			return nil, err
		}
		s, err := k.FromMesh(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		solids[i] = s
	}
	s, err := op(solids[0], solids[1])
	if err != nil {
		return nil, err
	}
	out, err := k.ToMesh(s)
	if err != nil {
		return nil, err
	}
	out.Name = a.Name
	return out, nil
}

// checkOperand diagnoses m before it enters a boolean. Problems are a
// warning unless the run is strict.
func (p *Pipeline) checkOperand(run *Run, k kernel.Kernel, log logrus.FieldLogger, m *geom.Mesh) error {
	d := kernel.Diagnose(k, m)
	run.Diagnoses[m.Name] = d
	if d.OK() {
		return nil
	}
	err := &kernel.NonManifoldError{Operand: m.Name, Reason: d.Describe()}
	if run.Config.Strict {
		return err
	}
	log.WithFields(logrus.Fields{
		"operand":            m.Name,
		"boundary_edges":     d.BoundaryEdges,
		"non_manifold_edges": d.NonManifoldEdges,
		"self_intersections": d.SelfIntersections,
	}).Warn("non-manifold operand, boolean result may be invalid")
	return nil
}
