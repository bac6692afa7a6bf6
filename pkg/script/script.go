// Package script evaluates the facility description language: a sandboxed
// zygomys Lisp dialect whose builtins (site, building, floor, room, rack,
// device-type, device) accumulate a scene config and device catalog.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// DefaultTimeout is the hard limit for a single evaluation.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when evaluation exceeds the engine's limit.
	ErrTimeout = errors.New("script: evaluation timed out")
	// ErrSuperseded is returned when a newer Evaluate call started before
	// this one finished.
	ErrSuperseded = errors.New("script: evaluation superseded by newer request")
)

// EvalError is a non-fatal error in user code, such as a parse error or a
// builtin rejecting its arguments.
type EvalError struct {
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning flags suspicious but accepted input.
type EvalWarning struct {
	EntityID string `json:"entityId,omitempty"`
	Message  string `json:"message"`
}

// Result is the output of a successful evaluation.
type Result struct {
	Config   *facility.SceneConfig `json:"config"`
	Catalog  facility.Catalog      `json:"catalog"`
	Warnings []EvalWarning         `json:"warnings,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	log        zerolog.Logger
}

// NewEngine returns an engine with DefaultTimeout.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs source and returns the described facility.
//
// Return semantics:
//   - On success: result + nil errors + nil error
//   - On parse/eval failure: nil + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalOutcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOutcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, evalErrs := evaluate(source)
		ch <- evalOutcome{result: res, errors: evalErrs}
	}()

	res, evalErrs, err := e.wait(ch, gen)
	ev := e.log.Debug()
	if err != nil {
		ev = e.log.Warn().Err(err)
	}
	ev.Uint64("generation", gen).
		Int("eval_errors", len(evalErrs)).
		Dur("elapsed", time.Since(start)).
		Msg("script evaluated")
	return res, evalErrs, err
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func evaluate(source string) (*Result, []EvalError) {
	b := newBuilder()
	// Empty source is a valid program describing an empty site.
	if strings.TrimSpace(source) == "" {
		return b.result(), nil
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	b.register(env)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return b.result(), nil
}

var (
	// zygomys formats parse errors as "Error on line N: <details>".
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting a line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
