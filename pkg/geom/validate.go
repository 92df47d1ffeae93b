package geom

import "fmt"

// ValidationSeverity indicates whether a validation finding makes a mesh
// unusable or is merely advisory.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // mesh cannot be processed
	SeverityWarning                           // mesh can be processed, booleans may misbehave
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Face     int // offending face index, -1 if mesh-level
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Face < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] face %d: %s", e.Severity, e.Face, e.Message)
}

// Validate checks the structural invariant of a Mesh: every face has at
// least three corners and every index names an existing vertex. The mesh
// is never modified.
func (m *Mesh) Validate() []ValidationError {
	var errs []ValidationError
	n := len(m.Vertices)
	for fi, f := range m.Faces {
		if len(f) < 3 {
			errs = append(errs, ValidationError{
				Face:     fi,
				Message:  fmt.Sprintf("face has %d indices, need at least 3", len(f)),
				Severity: SeverityError,
			})
			continue
		}
		for _, idx := range f {
			if idx < 0 || idx >= n {
				errs = append(errs, ValidationError{
					Face:     fi,
					Message:  fmt.Sprintf("vertex index %d out of range [0, %d)", idx, n),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// ValidateSolid runs Validate plus the closed-surface checks that boolean
// operations rely on. Open or over-shared edges are reported as warnings.
func (m *Mesh) ValidateSolid() []ValidationError {
	errs := m.Validate()
	for _, e := range errs {
		if e.Severity == SeverityError {
			return errs
		}
	}
	r := EdgeReport(m)
	if r.Boundary > 0 {
		errs = append(errs, ValidationError{
			Face:     -1,
			Message:  fmt.Sprintf("%d boundary edges, surface is not closed", r.Boundary),
			Severity: SeverityWarning,
		})
	}
	if r.NonManifold > 0 {
		errs = append(errs, ValidationError{
			Face:     -1,
			Message:  fmt.Sprintf("%d edges shared by more than two faces", r.NonManifold),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// Edges summarizes how the faces of a mesh share edges.
type Edges struct {
	Total       int
	Boundary    int // used by exactly one face
	NonManifold int // used by three or more faces
}

// Closed reports whether every edge is shared by exactly two faces.
func (e Edges) Closed() bool {
	return e.Total > 0 && e.Boundary == 0 && e.NonManifold == 0
}

type edgeKey struct{ a, b int }

// EdgeReport counts edge usage by vertex index. Coincident but distinct
// vertices are treated as different, so unwelded meshes report as open.
func EdgeReport(m *Mesh) Edges {
	uses := make(map[edgeKey]int)
	for _, f := range m.Faces {
		for i := range f {
			a, b := f[i], f[(i+1)%len(f)]
			if a > b {
				a, b = b, a
			}
			uses[edgeKey{a, b}]++
		}
	}
	r := Edges{Total: len(uses)}
	for _, n := range uses {
		switch {
		case n == 1:
			r.Boundary++
		case n > 2:
			r.NonManifold++
		}
	}
	return r
}
