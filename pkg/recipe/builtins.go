package recipe

import (
	"fmt"
	"strings"

	"github.com/chazu/coinrelief/pkg/relief"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms recipe source code before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: rotate-x -> rotate_x
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
//  3. ; line comments become // comments.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters is it
		// part of a name rather than a minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpVec3 wraps an r3.Vec so (vec3 ...) can feed :rotate.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// A trailing keyword with no value is a flag.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true/false. A bare trailing keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// coinOption applies one keyword argument of (coin ...) to a recipe.
type coinOption func(r *Recipe, v zygo.Sexp) error

func floatOption(field func(*Recipe) **float64) coinOption {
	return func(r *Recipe, v zygo.Sexp) error {
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		*field(r) = &f
		return nil
	}
}

func intOption(field func(*Recipe) **int) coinOption {
	return func(r *Recipe, v zygo.Sexp) error {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		*field(r) = &n
		return nil
	}
}

func boolOption(field func(*Recipe) **bool) coinOption {
	return func(r *Recipe, v zygo.Sexp) error {
		b, err := toBool(v)
		if err != nil {
			return err
		}
		*field(r) = &b
		return nil
	}
}

var coinOptions = map[string]coinOption{
	"input": func(r *Recipe, v zygo.Sexp) (err error) {
		r.Input, err = toString(v)
		return err
	},
	"output": func(r *Recipe, v zygo.Sexp) (err error) {
		r.Output, err = toString(v)
		return err
	},
	"algorithm": func(r *Recipe, v zygo.Sexp) error {
		name, err := toKeywordString(v)
		if err != nil {
			return err
		}
		if _, err := relief.ParseAlgorithm(name); err != nil {
			return err
		}
		r.Algorithm = name
		return nil
	},
	"kernel": func(r *Recipe, v zygo.Sexp) (err error) {
		r.Kernel, err = toKeywordString(v)
		return err
	},
	"rotate": func(r *Recipe, v zygo.Sexp) error {
		vec, err := toVec3(v)
		if err != nil {
			return err
		}
		r.Rotation = &vec
		return nil
	},
	"diameter":   floatOption(func(r *Recipe) **float64 { return &r.Diameter }),
	"depth":      floatOption(func(r *Recipe) **float64 { return &r.Depth }),
	"margin":     floatOption(func(r *Recipe) **float64 { return &r.Margin }),
	"thickness":  floatOption(func(r *Recipe) **float64 { return &r.Thickness }),
	"resolution": floatOption(func(r *Recipe) **float64 { return &r.Resolution }),
	"segments":   intOption(func(r *Recipe) **int { return &r.Segments }),
	"samples":    intOption(func(r *Recipe) **int { return &r.Samples }),
	"base":       boolOption(func(r *Recipe) **bool { return &r.Base }),
	"strict":     boolOption(func(r *Recipe) **bool { return &r.Strict }),
}

// registerBuiltins installs the recipe builtins into a zygomys environment.
// Every (coin ...) call is merged into r, later calls winning, and counted
// in calls.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, r *Recipe, calls *int) {

	// -----------------------------------------------------------------------
	// (coin :input "m.usda" :diameter 40 :depth 2 :rotate (vec3 90 0 0)
	//       :algorithm :backcut :margin 0.85 :segments 128 :thickness 3
	//       :base true)
	// -----------------------------------------------------------------------
	env.AddFunction("coin", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("coin: unexpected positional argument %s", pa.positional[0].SexpString(nil))
		}
		next := &Recipe{}
		for _, key := range pa.order {
			opt, ok := coinOptions[key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("coin: unknown option :%s", key)
			}
			if err := opt(next, pa.kw[key]); err != nil {
				return zygo.SexpNull, fmt.Errorf("coin: %s: %w", key, err)
			}
		}
		r.merge(next)
		*calls++
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 90 0 0)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})
}
