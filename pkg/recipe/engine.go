// Package recipe evaluates coin recipe files. A recipe is a small Lisp
// program run in a sandboxed zygomys interpreter; its (coin ...) forms
// collect configuration overrides.
//
//	; 40 mm coin, cut flat at the back
//	(def d 40)
//	(coin :input "statue.usda"
//	      :diameter d :depth 2
//	      :rotate (vec3 90 0 0)
//	      :algorithm :backcut)
package recipe

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Message string
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Recipe   *Recipe
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for recipe evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{Timeout: EvalTimeout}
}

// Evaluate runs recipe source code and collects its overrides.
//
// Return semantics:
//   - On success: Recipe is set, Errors is empty, error is nil
//   - On parse/eval failure: Recipe is nil, Errors is set, error is nil
//   - On fatal failure (timeout, panic): nil result and an error
func (e *Engine) Evaluate(source string) (*EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	limit := e.Timeout
	if limit <= 0 {
		limit = EvalTimeout
	}

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		ch <- e.evaluate(source)
	}()

	res, err := waitWithTimeout(ch, limit, gen, &e.mu, &e.generation)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Recipe: res.recipe, Errors: res.errors, Warnings: res.warnings}, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) evalResult {
	if strings.TrimSpace(source) == "" {
		return evalResult{
			recipe:   &Recipe{},
			warnings: []EvalWarning{{Message: "recipe is empty"}},
		}
	}

	// Sandbox mode prevents recipes from accessing the filesystem or
	// syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	r := &Recipe{}
	calls := 0
	registerBuiltins(env, r, &calls)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return evalResult{errors: parseZygomysError(err)}
	}
	if _, err := env.Run(); err != nil {
		return evalResult{errors: parseZygomysError(err)}
	}

	var warnings []EvalWarning
	if calls == 0 {
		warnings = append(warnings, EvalWarning{Message: "recipe has no (coin ...) form, nothing is overridden"})
	}
	return evalResult{recipe: r, warnings: warnings}
}

// Load reads and evaluates the recipe file at path. The first evaluation
// error is returned as the error.
func Load(path string) (*Recipe, []EvalWarning, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("recipe: %w", err)
	}
	res, err := NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("recipe %s: %w", path, err)
	}
	if len(res.Errors) > 0 {
		return nil, res.Warnings, fmt.Errorf("recipe %s: %w", path, res.Errors[0])
	}
	return res.Recipe, res.Warnings, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
