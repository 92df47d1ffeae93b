package coin

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrConfiguration marks an invalid setting. It is detected before
	// any geometry is touched.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrImportEmpty is returned when the source scene contains no objects.
	ErrImportEmpty = errors.New("import produced no objects")
	// ErrNoMeshObjects is returned when the scene has objects but none of
	// them is a mesh.
	ErrNoMeshObjects = errors.New("no mesh objects in scene")
	// ErrInvalidTransition is returned when a run is moved to a stage that
	// does not directly follow its current one.
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// ConfigError describes one invalid setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns ErrConfiguration.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// StageError attributes a failure to the stage that was being attempted.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
