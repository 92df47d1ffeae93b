package coin

import (
	"math"

	"github.com/chazu/coinrelief/pkg/base"
	"github.com/chazu/coinrelief/pkg/relief"
)

// Configuration keys shared by the config file, environment variables and
// recipes.
const (
	KeyInput         = "input"
	KeyOutput        = "output"
	KeyDiameter      = "coin_diameter"
	KeyDepth         = "relief_depth"
	KeyRotationX     = "rotation_x"
	KeyRotationY     = "rotation_y"
	KeyRotationZ     = "rotation_z"
	KeySamples       = "samples"
	KeyAlgorithm     = "algorithm"
	KeyMargin        = "margin"
	KeyBaseThickness = "base_thickness"
	KeySegments      = "segments"
	KeySkipBase      = "no_base"
	KeyKernel        = "kernel"
	KeyResolution    = "resolution"
	KeyStrict        = "strict"
)

// Defaults for settings outside the relief block.
const (
	DefaultOutput     = "coin_relief.stl"
	DefaultKernel     = "model3d"
	DefaultResolution = 0.2
)

// Config is the full, validated input of one pipeline run.
type Config struct {
	Input  string
	Output string
	Relief relief.Config

	BaseThickness float64
	// Segments is the base cylinder's side count. Zero selects the
	// algorithm default.
	Segments int
	// SkipBase exports the relief without a base.
	SkipBase bool

	Kernel     string
	Resolution float64
	// Strict turns the non-manifold operand warning into a failure.
	Strict bool
}

// DefaultConfig returns a Config with every default applied and no input.
func DefaultConfig() Config {
	return Config{
		Output:        DefaultOutput,
		Relief:        relief.DefaultConfig(),
		BaseThickness: base.DefaultThickness,
		Kernel:        DefaultKernel,
		Resolution:    DefaultResolution,
	}
}

// EffectiveSegments resolves a zero Segments to the algorithm default.
func (c Config) EffectiveSegments() int {
	if c.Segments == 0 {
		return c.Relief.Algorithm.DefaultSegments()
	}
	return c.Segments
}

// Validate checks every setting and returns the first problem as a
// *ConfigError. NaN and infinite lengths, margins and angles are rejected.
func (c Config) Validate() error {
	rot := c.Relief.Rotation
	switch {
	case c.Input == "":
		return &ConfigError{Field: KeyInput, Message: "an input scene is required"}
	case c.Output == "":
		return &ConfigError{Field: KeyOutput, Message: "an output path is required"}
	case !positive(c.Relief.Diameter):
		return &ConfigError{Field: KeyDiameter, Message: "must be a finite positive number"}
	case !positive(c.Relief.Depth):
		return &ConfigError{Field: KeyDepth, Message: "must be a finite positive number"}
	case !(c.Relief.Margin >= 0 && c.Relief.Margin <= 1):
		return &ConfigError{Field: KeyMargin, Message: "must be in [0, 1], 0 selects the algorithm default"}
	case !finite(rot.X):
		return &ConfigError{Field: KeyRotationX, Message: "must be a finite angle"}
	case !finite(rot.Y):
		return &ConfigError{Field: KeyRotationY, Message: "must be a finite angle"}
	case !finite(rot.Z):
		return &ConfigError{Field: KeyRotationZ, Message: "must be a finite angle"}
	case c.Relief.Samples < 1:
		return &ConfigError{Field: KeySamples, Message: "must be at least 1"}
	case !positive(c.BaseThickness):
		return &ConfigError{Field: KeyBaseThickness, Message: "must be a finite positive number"}
	case c.Segments != 0 && c.Segments < 3:
		return &ConfigError{Field: KeySegments, Message: "must be at least 3"}
	case !positive(c.Resolution):
		return &ConfigError{Field: KeyResolution, Message: "must be a finite positive number"}
	}
	if _, err := relief.ParseAlgorithm(c.Relief.Algorithm.String()); err != nil {
		return &ConfigError{Field: KeyAlgorithm, Message: err.Error()}
	}
	if !knownKernel(c.Kernel) {
		return &ConfigError{Field: KeyKernel, Message: "unknown kernel " + c.Kernel + ", expected model3d, sdfx or manifold"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
