package recipe

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func mustEvaluate(t *testing.T, source string) *EvalResult {
	t.Helper()
	res, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	return res
}

func TestEvaluateEmptyString(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		res := mustEvaluate(t, src)
		if len(res.Errors) > 0 {
			t.Fatalf("unexpected eval errors: %v", res.Errors)
		}
		if res.Recipe == nil || !res.Recipe.IsEmpty() {
			t.Errorf("expected empty recipe, got %+v", res.Recipe)
		}
		if len(res.Warnings) != 1 {
			t.Errorf("expected one warning, got %v", res.Warnings)
		}
	}
}

func TestEvaluateWithoutCoinForm(t *testing.T) {
	res := mustEvaluate(t, "(def x 10)\n(def y 20)\n(+ x y)")
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected eval errors: %v", res.Errors)
	}
	if res.Recipe == nil || !res.Recipe.IsEmpty() {
		t.Errorf("expected empty recipe, got %+v", res.Recipe)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "no (coin ...) form") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	// Unmatched paren is a parse error.
	res := mustEvaluate(t, "(coin :depth 2")
	if res.Recipe != nil {
		t.Fatal("expected nil recipe on syntax error")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if res.Errors[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	res := mustEvaluate(t, "(coin :depth undefined-symbol)")
	if res.Recipe != nil {
		t.Fatal("expected nil recipe on eval error")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	for i := 0; i < 5; i++ {
		res, err := eng.Evaluate("(coin :depth 2)")
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(res.Errors) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, res.Errors)
		}
		if res.Recipe.Depth == nil || *res.Recipe.Depth != 2 {
			t.Errorf("iteration %d: depth = %v", i, res.Recipe.Depth)
		}
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q", s)
	}
	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestWaitWithTimeout(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(1)
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, err := waitWithTimeout(ch, 20*time.Millisecond, 1, &mu, &gen)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took far longer than the limit")
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)
	ch := make(chan evalResult, 1)
	ch <- evalResult{recipe: &Recipe{}}

	_, err := waitWithTimeout(ch, time.Second, 1, &mu, &gen)
	if err == nil || !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short format", "line 3: coin: unknown option :colour", 3, "unknown option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.lisp")
	if err := os.WriteFile(good, []byte(`(coin :input "statue.usda" :diameter 30)`), 0o644); err != nil {
		t.Fatal(err)
	}
	r, warnings, err := Load(good)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if r.Input != "statue.usda" || r.Diameter == nil || *r.Diameter != 30 {
		t.Errorf("recipe = %+v", r)
	}

	bad := filepath.Join(dir, "bad.lisp")
	if err := os.WriteFile(bad, []byte(`(coin :colour "red")`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "bad.lisp") {
		t.Errorf("Load(bad) = %v, want error naming the file", err)
	}

	if _, _, err := Load(filepath.Join(dir, "missing.lisp")); err == nil {
		t.Error("Load(missing) should fail")
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
