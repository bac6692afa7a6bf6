package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/script"
)

// EvalErrors reports user errors in a facility script.
type EvalErrors []script.EvalError

func (e EvalErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ee := range e {
		msgs[i] = ee.Error()
	}
	return "script: " + strings.Join(msgs, "; ")
}

// ScriptSource evaluates a facility script file.
type ScriptSource struct {
	Path   string
	Engine *script.Engine
	Log    zerolog.Logger
}

func (s *ScriptSource) Describe() string { return "script:" + s.Path }

// Load reads and evaluates the script. Evaluation errors come back as
// EvalErrors; warnings are logged.
func (s *ScriptSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	eng := s.Engine
	if eng == nil {
		eng = script.NewEngine()
	}
	res, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", s.Path, err)
	}
	if len(evalErrs) > 0 {
		return nil, EvalErrors(evalErrs)
	}
	for _, w := range res.Warnings {
		s.Log.Warn().Str("path", s.Path).Str("entity_id", w.EntityID).Msg(w.Message)
	}
	return &Snapshot{Config: res.Config, Catalog: res.Catalog}, nil
}
