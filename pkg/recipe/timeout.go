package recipe

import (
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult passes evaluation results through channels.
type evalResult struct {
	recipe   *Recipe
	errors   []EvalError
	warnings []EvalWarning
	err      error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds limit. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	limit time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (evalResult, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return evalResult{}, fmt.Errorf("evaluation superseded by newer request")
		}
		return res, res.err

	case <-timer.C:
		return evalResult{}, fmt.Errorf("evaluation timed out after %s", limit)
	}
}
