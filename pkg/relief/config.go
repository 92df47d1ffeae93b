package relief

import "gonum.org/v1/gonum/spatial/r3"

// Default relief settings.
const (
	DefaultDiameter = 40.0
	DefaultDepth    = 2.0
	DefaultSamples  = 512
)

// Config holds the relief settings of one run. Lengths are in mm and
// rotation angles in degrees.
type Config struct {
	Diameter float64
	Depth    float64
	Rotation r3.Vec
	// Margin is the fraction of Diameter the footprint is fitted to. Zero
	// selects the algorithm's default.
	Margin float64
	// Samples is the resolution of the height-field mode, which no
	// algorithm implements yet. It is accepted and reported only.
	Samples   int
	Algorithm Algorithm
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Diameter:  DefaultDiameter,
		Depth:     DefaultDepth,
		Samples:   DefaultSamples,
		Algorithm: AffineSquash,
	}
}

// EffectiveMargin resolves a zero Margin to the algorithm default.
func (c Config) EffectiveMargin() float64 {
	if c.Margin == 0 {
		return c.Algorithm.DefaultMargin()
	}
	return c.Margin
}
