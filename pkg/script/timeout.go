package script

import (
	"fmt"
	"time"
)

type evalOutcome struct {
	result *Result
	errors []EvalError
	err    error
}

// wait blocks for the outcome on ch until the engine timeout. A result that
// arrives after a newer Evaluate began is discarded as superseded.
//
// On timeout the goroutine may still be running; the generation check
// discards its result when it eventually completes.
func (e *Engine) wait(ch <-chan evalOutcome, gen uint64) (*Result, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.result, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}
