package recipe

import (
	"github.com/chazu/coinrelief/pkg/coin"
	"gonum.org/v1/gonum/spatial/r3"
)

// Recipe holds the settings a recipe file overrides. Nil pointers and
// empty strings mean "not set".
type Recipe struct {
	Input     string
	Output    string
	Algorithm string
	Kernel    string

	Diameter   *float64
	Depth      *float64
	Margin     *float64
	Thickness  *float64
	Resolution *float64
	Rotation   *r3.Vec

	Segments *int
	Samples  *int

	// Base false drops the base cylinder.
	Base   *bool
	Strict *bool
}

// IsEmpty reports whether the recipe overrides nothing.
func (r *Recipe) IsEmpty() bool {
	return len(r.Settings()) == 0
}

// Settings flattens the recipe into configuration keys, ready to be
// merged under flags and environment variables.
func (r *Recipe) Settings() map[string]any {
	out := map[string]any{}
	setString := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	setFloat := func(key string, v *float64) {
		if v != nil {
			out[key] = *v
		}
	}
	setInt := func(key string, v *int) {
		if v != nil {
			out[key] = *v
		}
	}

	setString(coin.KeyInput, r.Input)
	setString(coin.KeyOutput, r.Output)
	setString(coin.KeyAlgorithm, r.Algorithm)
	setString(coin.KeyKernel, r.Kernel)
	setFloat(coin.KeyDiameter, r.Diameter)
	setFloat(coin.KeyDepth, r.Depth)
	setFloat(coin.KeyMargin, r.Margin)
	setFloat(coin.KeyBaseThickness, r.Thickness)
	setFloat(coin.KeyResolution, r.Resolution)
	setInt(coin.KeySegments, r.Segments)
	setInt(coin.KeySamples, r.Samples)
	if r.Rotation != nil {
		out[coin.KeyRotationX] = r.Rotation.X
		out[coin.KeyRotationY] = r.Rotation.Y
		out[coin.KeyRotationZ] = r.Rotation.Z
	}
	if r.Base != nil {
		out[coin.KeySkipBase] = !*r.Base
	}
	if r.Strict != nil {
		out[coin.KeyStrict] = *r.Strict
	}
	return out
}

// merge copies every field set in o over r.
func (r *Recipe) merge(o *Recipe) {
	if o.Input != "" {
		r.Input = o.Input
	}
	if o.Output != "" {
		r.Output = o.Output
	}
	if o.Algorithm != "" {
		r.Algorithm = o.Algorithm
	}
	if o.Kernel != "" {
		r.Kernel = o.Kernel
	}
	for _, p := range []struct{ dst, src **float64 }{
		{&r.Diameter, &o.Diameter},
		{&r.Depth, &o.Depth},
		{&r.Margin, &o.Margin},
		{&r.Thickness, &o.Thickness},
		{&r.Resolution, &o.Resolution},
	} {
		if *p.src != nil {
			*p.dst = *p.src
		}
	}
	if o.Rotation != nil {
		r.Rotation = o.Rotation
	}
	if o.Segments != nil {
		r.Segments = o.Segments
	}
	if o.Samples != nil {
		r.Samples = o.Samples
	}
	if o.Base != nil {
		r.Base = o.Base
	}
	if o.Strict != nil {
		r.Strict = o.Strict
	}
}
