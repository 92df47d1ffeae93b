package coin

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
	"github.com/chazu/coinrelief/pkg/kernel/model3d"
	"github.com/chazu/coinrelief/pkg/relief"
	"github.com/chazu/coinrelief/pkg/sceneio"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gonum.org/v1/gonum/spatial/r3"
)

// --- collaborators ---

type stubImporter struct {
	objs []sceneio.Object
	err  error
}

func (s *stubImporter) Import(string) ([]sceneio.Object, error) { return s.objs, s.err }

type captureExporter struct {
	path string
	mesh *geom.Mesh
	err  error
}

func (c *captureExporter) Export(m *geom.Mesh, path string) error {
	c.mesh, c.path = m, path
	return c.err
}

// meshSolid carries its mesh through the stub kernel unchanged.
type meshSolid struct{ m *geom.Mesh }

func (s *meshSolid) BoundingBox() (min, max [3]float64) {
	b := geom.Bounds(s.m)
	return [3]float64{b.Min.X, b.Min.Y, b.Min.Z}, [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

// stubKernel implements union as concatenation and difference as a no-op,
// and records every operation.
type stubKernel struct {
	ops []string
}

func (k *stubKernel) Name() string { return "stub" }

func (k *stubKernel) FromMesh(m *geom.Mesh) (kernel.Solid, error) {
	k.ops = append(k.ops, "from:"+m.Name)
	return &meshSolid{m: m.Clone()}, nil
}

func (k *stubKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	k.ops = append(k.ops, "union")
	return &meshSolid{m: geom.Merge("union", a.(*meshSolid).m, b.(*meshSolid).m)}, nil
}

func (k *stubKernel) Difference(a, _ kernel.Solid) (kernel.Solid, error) {
	k.ops = append(k.ops, "difference")
	return a, nil
}

func (k *stubKernel) Intersection(a, _ kernel.Solid) (kernel.Solid, error) {
	return a, nil
}

func (k *stubKernel) ToMesh(s kernel.Solid) (*geom.Mesh, error) {
	k.ops = append(k.ops, "mesh")
	return s.(*meshSolid).m, nil
}

func boxScene() []sceneio.Object {
	return []sceneio.Object{
		{Name: "Camera", Path: "/Camera", Type: "Camera"},
		{Name: "Body", Path: "/Body", Type: sceneio.MeshType,
			Mesh: geom.NewBox("Body", r3.Vec{X: -5, Y: -2.5, Z: 0}, r3.Vec{X: 5, Y: 2.5, Z: 10})},
	}
}

func testConfig(alg relief.Algorithm) Config {
	cfg := DefaultConfig()
	cfg.Input = "scene.usda"
	cfg.Output = "out.stl"
	cfg.Relief.Algorithm = alg
	return cfg
}

type fixture struct {
	pipeline *Pipeline
	kernel   *stubKernel
	exporter *captureExporter
	hook     *test.Hook
}

func newFixture(objs []sceneio.Object) *fixture {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := &fixture{
		kernel:   &stubKernel{},
		exporter: &captureExporter{},
		hook:     hook,
	}
	f.pipeline = &Pipeline{
		Kernel:   f.kernel,
		Importer: &stubImporter{objs: objs},
		Exporter: f.exporter,
		Log:      logger,
	}
	return f
}

func (f *fixture) messages(level logrus.Level) []string {
	var out []string
	for _, e := range f.hook.AllEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// --- config ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Relief.Diameter != 40 || cfg.Relief.Depth != 2 || cfg.Relief.Samples != 512 {
		t.Errorf("relief defaults = %+v", cfg.Relief)
	}
	if cfg.Output != "coin_relief.stl" || cfg.BaseThickness != 3 || cfg.Kernel != "model3d" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Relief.Algorithm != relief.AffineSquash {
		t.Errorf("algorithm = %s, want affine", cfg.Relief.Algorithm)
	}
	if got := cfg.EffectiveSegments(); got != 32 {
		t.Errorf("EffectiveSegments = %d, want 32", got)
	}
	cfg.Relief.Algorithm = relief.VertexProjection
	if got := cfg.EffectiveSegments(); got != 128 {
		t.Errorf("EffectiveSegments = %d, want 128", got)
	}
	cfg.Segments = 12
	if got := cfg.EffectiveSegments(); got != 12 {
		t.Errorf("EffectiveSegments = %d, want 12", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"no input", func(c *Config) { c.Input = "" }, KeyInput},
		{"no output", func(c *Config) { c.Output = "" }, KeyOutput},
		{"zero diameter", func(c *Config) { c.Relief.Diameter = 0 }, KeyDiameter},
		{"NaN diameter", func(c *Config) { c.Relief.Diameter = math.NaN() }, KeyDiameter},
		{"negative depth", func(c *Config) { c.Relief.Depth = -1 }, KeyDepth},
		{"margin above one", func(c *Config) { c.Relief.Margin = 1.5 }, KeyMargin},
		{"margin one", func(c *Config) { c.Relief.Margin = 1 }, ""},
		{"zero samples", func(c *Config) { c.Relief.Samples = 0 }, KeySamples},
		{"zero thickness", func(c *Config) { c.BaseThickness = 0 }, KeyBaseThickness},
		{"two segments", func(c *Config) { c.Segments = 2 }, KeySegments},
		{"bad algorithm", func(c *Config) { c.Relief.Algorithm = relief.Algorithm(9) }, KeyAlgorithm},
		{"bad kernel", func(c *Config) { c.Kernel = "cgal" }, KeyKernel},
		{"kernel case", func(c *Config) { c.Kernel = "SDFX" }, ""},
		{"zero resolution", func(c *Config) { c.Resolution = 0 }, KeyResolution},
		{"infinite diameter", func(c *Config) { c.Relief.Diameter = math.Inf(1) }, KeyDiameter},
		{"NaN depth", func(c *Config) { c.Relief.Depth = math.NaN() }, KeyDepth},
		{"infinite depth", func(c *Config) { c.Relief.Depth = math.Inf(1) }, KeyDepth},
		{"NaN margin", func(c *Config) { c.Relief.Margin = math.NaN() }, KeyMargin},
		{"negative margin", func(c *Config) { c.Relief.Margin = -0.1 }, KeyMargin},
		{"zero margin", func(c *Config) { c.Relief.Margin = 0 }, ""},
		{"infinite rotation x", func(c *Config) { c.Relief.Rotation.X = math.Inf(1) }, KeyRotationX},
		{"NaN rotation y", func(c *Config) { c.Relief.Rotation.Y = math.NaN() }, KeyRotationY},
		{"infinite rotation z", func(c *Config) { c.Relief.Rotation.Z = math.Inf(-1) }, KeyRotationZ},
		{"large rotation", func(c *Config) { c.Relief.Rotation.Z = 720 }, ""},
		{"NaN thickness", func(c *Config) { c.BaseThickness = math.NaN() }, KeyBaseThickness},
		{"infinite resolution", func(c *Config) { c.Resolution = math.Inf(1) }, KeyResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(relief.AffineSquash)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want ErrConfiguration", err)
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) || cerr.Field != tt.field {
				t.Errorf("Validate() = %v, want field %s", err, tt.field)
			}
		})
	}
}

// --- state machine ---

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		from, to Stage
		sliced   bool
		ok       bool
	}{
		{StageNew, StageImported, false, true},
		{StageImported, StageNormalized, false, true},
		{StageNormalized, StageProjected, false, true},
		{StageProjected, StageCombined, false, true},
		{StageProjected, StageSliced, false, false},
		{StageProjected, StageSliced, true, true},
		{StageProjected, StageCombined, true, false},
		{StageSliced, StageCombined, true, true},
		{StageCombined, StageExported, false, true},
		{StageNew, StageNormalized, false, false},
		{StageProjected, StageNormalized, false, false},
		{StageNormalized, StageFailed, false, true},
		{StageExported, StageFailed, false, false},
		{StageFailed, StageImported, false, false},
	}
	for _, tt := range tests {
		if got := tt.from.canAdvance(tt.to, tt.sliced); got != tt.ok {
			t.Errorf("%s -> %s (sliced=%v) = %v, want %v", tt.from, tt.to, tt.sliced, got, tt.ok)
		}
	}
}

func TestRunAdvanceRejectsSkips(t *testing.T) {
	run := newRun(testConfig(relief.AffineSquash))
	err := run.advance(StageProjected)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("advance = %v, want ErrInvalidTransition", err)
	}
	if run.Stage != StageNew {
		t.Errorf("stage = %s, want new", run.Stage)
	}
	if !strings.Contains(err.Error(), "new -> projected") {
		t.Errorf("error = %q", err)
	}
}

func TestStageString(t *testing.T) {
	if got := StageSliced.String(); got != "sliced" {
		t.Errorf("String() = %q", got)
	}
	if got := Stage(42).String(); got != "Stage(42)" {
		t.Errorf("String() = %q", got)
	}
}

// --- pipeline ---

func TestExecuteAffine(t *testing.T) {
	f := newFixture(boxScene())
	run, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Stage != StageExported {
		t.Errorf("stage = %s, want exported", run.Stage)
	}
	if run.Objects != 2 || run.Meshes != 1 {
		t.Errorf("objects = %d, meshes = %d", run.Objects, run.Meshes)
	}
	// 10 wide box fitted to 40 * 0.8.
	if math.Abs(run.Fit.Scale-3.2) > 1e-12 {
		t.Errorf("scale = %v, want 3.2", run.Fit.Scale)
	}
	if f.exporter.path != "out.stl" || f.exporter.mesh != run.Result {
		t.Errorf("exporter got %q %v", f.exporter.path, f.exporter.mesh)
	}
	wantOps := []string{"from:relief", "from:base", "union", "mesh"}
	if diff := cmp.Diff(wantOps, f.kernel.ops); diff != "" {
		t.Errorf("kernel ops (-want +got):\n%s", diff)
	}
	if run.Base == nil || run.Base.VertexCount() != 2*32+2 {
		t.Errorf("base = %v, want 32 segments", run.Base)
	}

	// Relief spans [0, depth]; the base is centered on z=0.
	b := geom.Bounds(run.Result)
	if math.Abs(b.Min.Z+1.5) > 1e-9 || math.Abs(b.Max.Z-2) > 1e-9 {
		t.Errorf("result z = [%v, %v], want [-1.5, 2]", b.Min.Z, b.Max.Z)
	}
	if len(f.messages(logrus.WarnLevel)) != 0 {
		t.Errorf("unexpected warnings: %v", f.messages(logrus.WarnLevel))
	}
	wantInfo := []string{"scene imported", "model fitted to coin face", "depth compressed", "relief joined to base", "solid exported"}
	if diff := cmp.Diff(wantInfo, f.messages(logrus.InfoLevel)); diff != "" {
		t.Errorf("info log (-want +got):\n%s", diff)
	}
}

func TestExecuteBackCut(t *testing.T) {
	f := newFixture(boxScene())
	run, err := f.pipeline.Execute(testConfig(relief.VertexProjectionWithBackCut))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	wantOps := []string{
		"from:relief", "from:cutter", "difference", "mesh",
		"from:relief", "from:base", "union", "mesh",
	}
	if diff := cmp.Diff(wantOps, f.kernel.ops); diff != "" {
		t.Errorf("kernel ops (-want +got):\n%s", diff)
	}
	for _, name := range []string{"relief", "cutter", "base"} {
		if _, ok := run.Diagnoses[name]; !ok {
			t.Errorf("no diagnosis for %s", name)
		}
	}
	// The base hangs below z=0 for the back-cut algorithm.
	if b := geom.Bounds(run.Base); b.Max.Z != 0 || b.Min.Z != -3 {
		t.Errorf("base z = [%v, %v], want [-3, 0]", b.Min.Z, b.Max.Z)
	}
	if run.Base.VertexCount() != 2*128+2 {
		t.Errorf("base vertices = %d, want 128 segments", run.Base.VertexCount())
	}
}

func TestExecuteSkipBase(t *testing.T) {
	f := newFixture(boxScene())
	cfg := testConfig(relief.VertexProjectionWithBackCut)
	cfg.SkipBase = true
	run, err := f.pipeline.Execute(cfg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Base != nil {
		t.Error("base generated despite SkipBase")
	}
	wantOps := []string{"from:relief", "from:cutter", "difference", "mesh"}
	if diff := cmp.Diff(wantOps, f.kernel.ops); diff != "" {
		t.Errorf("kernel ops (-want +got):\n%s", diff)
	}
	if b := geom.Bounds(run.Result); b.Min.Z != 0 {
		t.Errorf("result min z = %v, want 0", b.Min.Z)
	}
}

func TestExecuteLogsSamples(t *testing.T) {
	f := newFixture(boxScene())
	cfg := testConfig(relief.VertexProjection)
	cfg.Relief.Samples = 64
	if _, err := f.pipeline.Execute(cfg); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.DebugLevel && e.Data["samples"] == 64 {
			found = true
		}
	}
	if !found {
		t.Error("samples setting was not reported")
	}
}

func TestExecuteFailures(t *testing.T) {
	tests := []struct {
		name  string
		objs  []sceneio.Object
		want  error
		stage Stage
	}{
		{"empty scene", nil, ErrImportEmpty, StageImported},
		{"no meshes", []sceneio.Object{{Name: "Cam", Type: "Camera"}}, ErrNoMeshObjects, StageImported},
		{"mesh without geometry", []sceneio.Object{{Name: "M", Type: sceneio.MeshType, Mesh: &geom.Mesh{Name: "M"}}}, ErrImportEmpty, StageImported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.objs)
			run, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Execute = %v, want %v", err, tt.want)
			}
			var serr *StageError
			if !errors.As(err, &serr) || serr.Stage != tt.stage {
				t.Errorf("error = %v, want stage %s", err, tt.stage)
			}
			if run == nil || run.Stage != StageFailed || run.Err != err {
				t.Errorf("run = %+v, want failed", run)
			}
			if f.exporter.mesh != nil {
				t.Error("exporter called on failure")
			}
			if len(f.messages(logrus.ErrorLevel)) != 1 {
				t.Errorf("error log = %v", f.messages(logrus.ErrorLevel))
			}
		})
	}
}

func TestExecuteRejectsInvalidMesh(t *testing.T) {
	bad := &geom.Mesh{
		Name:     "Bad",
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Faces:    [][]int{{0, 1, 7}},
	}
	f := newFixture([]sceneio.Object{{Name: "Bad", Type: sceneio.MeshType, Mesh: bad}})
	run, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
	if err == nil || !strings.Contains(err.Error(), "imported mesh is invalid") {
		t.Fatalf("Execute = %v, want invalid mesh error", err)
	}
	var verr geom.ValidationError
	if !errors.As(err, &verr) || verr.Severity != geom.SeverityError {
		t.Errorf("error = %v, want a ValidationError", err)
	}
	if run.Stage != StageFailed || len(f.kernel.ops) != 0 {
		t.Errorf("stage = %s, kernel ops = %v", run.Stage, f.kernel.ops)
	}
}

func TestExecuteImportAndExportErrors(t *testing.T) {
	f := newFixture(nil)
	f.pipeline.Importer = &stubImporter{err: errors.New("disk on fire")}
	_, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("import error = %v", err)
	}

	f = newFixture(boxScene())
	f.exporter.err = errors.New("read-only")
	run, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
	var serr *StageError
	if !errors.As(err, &serr) || serr.Stage != StageExported {
		t.Errorf("export error = %v, want exported stage", err)
	}
	if run.Result == nil {
		t.Error("result should be kept on export failure")
	}
}

func TestExecuteInvalidConfig(t *testing.T) {
	f := newFixture(boxScene())
	cfg := testConfig(relief.AffineSquash)
	cfg.Relief.Depth = 0
	run, err := f.pipeline.Execute(cfg)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Execute = %v, want ErrConfiguration", err)
	}
	if run != nil {
		t.Error("run should be nil for invalid configuration")
	}
}

func openScene() []sceneio.Object {
	m := geom.NewBox("Open", r3.Vec{}, r3.Vec{X: 4, Y: 4, Z: 4})
	m.Faces = m.Faces[:5]
	return []sceneio.Object{{Name: "Open", Type: sceneio.MeshType, Mesh: m}}
}

func TestNonManifoldOperandWarns(t *testing.T) {
	f := newFixture(openScene())
	run, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if d := run.Diagnoses["relief"]; d.BoundaryEdges != 4 {
		t.Errorf("relief diagnosis = %+v, want 4 boundary edges", d)
	}
	if len(run.Findings) != 1 || run.Findings[0].Severity != geom.SeverityWarning ||
		!strings.Contains(run.Findings[0].Message, "4 boundary edges") {
		t.Errorf("findings = %v, want one boundary edge warning", run.Findings)
	}
	want := []string{
		"imported mesh is not a closed solid",
		"non-manifold operand, boolean result may be invalid",
	}
	if diff := cmp.Diff(want, f.messages(logrus.WarnLevel)); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
	if e := f.hook.LastEntry(); e == nil || e.Message != "solid exported" {
		t.Errorf("last entry = %v", e)
	}
}

func TestNonManifoldOperandStrict(t *testing.T) {
	f := newFixture(openScene())
	cfg := testConfig(relief.AffineSquash)
	cfg.Strict = true
	run, err := f.pipeline.Execute(cfg)
	if !errors.Is(err, kernel.ErrNonManifold) {
		t.Fatalf("Execute = %v, want ErrNonManifold", err)
	}
	var nm *kernel.NonManifoldError
	if !errors.As(err, &nm) || nm.Operand != "relief" {
		t.Errorf("error = %v, want relief operand", err)
	}
	if run.Stage != StageFailed {
		t.Errorf("stage = %s", run.Stage)
	}
	if len(f.kernel.ops) != 0 {
		t.Errorf("kernel used before strict check: %v", f.kernel.ops)
	}
}

func TestExecuteDegenerateScene(t *testing.T) {
	flat := &geom.Mesh{
		Name:     "Point",
		Vertices: []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}},
		Faces:    [][]int{{0, 1, 2}},
	}
	f := newFixture([]sceneio.Object{{Name: "Point", Type: sceneio.MeshType, Mesh: flat}})
	run, err := f.pipeline.Execute(testConfig(relief.AffineSquash))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !run.Fit.Degenerate || !run.Projection.Degenerate {
		t.Errorf("fit = %+v, projection = %+v, want degenerate", run.Fit, run.Projection)
	}
	if len(f.messages(logrus.WarnLevel)) < 2 {
		t.Errorf("warnings = %v", f.messages(logrus.WarnLevel))
	}
}

func TestNewKernel(t *testing.T) {
	for _, name := range []string{"", "model3d", "SDFX"} {
		k, err := NewKernel(name, 0.5)
		if err != nil {
			t.Errorf("NewKernel(%q): %v", name, err)
			continue
		}
		if k == nil {
			t.Errorf("NewKernel(%q) = nil", name)
		}
	}
	if _, err := NewKernel("cgal", 0.5); !errors.Is(err, ErrConfiguration) {
		t.Errorf("NewKernel(cgal) = %v, want ErrConfiguration", err)
	}
}

// TestExecuteModel3D runs the whole pipeline on the default backend and
// checks the exported file.
func TestExecuteModel3D(t *testing.T) {
	tests := []struct {
		name       string
		alg        relief.Algorithm
		minZ, maxZ float64
		ops        []string
	}{
		// Relief on [0, depth], base centered on z=0.
		{"affine", relief.AffineSquash, -1.5, 2, []string{"relief", "base"}},
		// Relief sliced at z=0, base below it.
		{"backcut", relief.VertexProjectionWithBackCut, -3, 2, []string{"cutter", "base"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			out := filepath.Join(t.TempDir(), "coin.stl")
			p := &Pipeline{
				Kernel:   model3d.New(0.5),
				Importer: &stubImporter{objs: boxScene()},
				Log:      logger,
			}
			cfg := testConfig(tt.alg)
			cfg.Output = out
			cfg.Relief.Diameter = 20
			run, err := p.Execute(cfg)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}

			objs, err := sceneio.ImportMesh(out)
			if err != nil {
				t.Fatalf("reading result: %v", err)
			}
			b := geom.Bounds(objs[0].Mesh)
			const tol = 1.0
			checks := []struct {
				name      string
				got, want float64
			}{
				{"min x", b.Min.X, -10},
				{"max x", b.Max.X, 10},
				{"min z", b.Min.Z, tt.minZ},
				{"max z", b.Max.Z, tt.maxZ},
			}
			for _, c := range checks {
				if math.Abs(c.got-c.want) > tol {
					t.Errorf("%s = %v, want ~%v", c.name, c.got, c.want)
				}
			}
			for _, name := range tt.ops {
				if d, ok := run.Diagnoses[name]; !ok || !d.OK() {
					t.Errorf("diagnosis %s = %+v (recorded %v)", name, d, ok)
				}
			}
		})
	}
}
