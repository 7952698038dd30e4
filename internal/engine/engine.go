// Package engine owns the process-wide extraction runtime: the PDF
// validation configuration and the airline extractor registry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/singleflight"

	"github.com/BerylCAtieno/airline-extractor/internal/airline"
	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

var ErrRuntimeUnavailable = errors.New("extraction runtime unavailable")

const loadKey = "environment"

// Environment is the initialized runtime shared by every request.
type Environment struct {
	PDFConfig  *model.Configuration
	extractors map[airline.Code]airline.Extractor
	order      []airline.Code
}

func NewEnvironment(conf *model.Configuration, extractors ...airline.Extractor) (*Environment, error) {
	env := &Environment{
		PDFConfig:  conf,
		extractors: make(map[airline.Code]airline.Extractor, len(extractors)),
	}
	for _, x := range extractors {
		if _, dup := env.extractors[x.Airline()]; dup {
			return nil, fmt.Errorf("duplicate extractor for airline %s", x.Airline())
		}
		env.extractors[x.Airline()] = x
		env.order = append(env.order, x.Airline())
	}
	return env, nil
}

func (e *Environment) Extractor(code airline.Code) (airline.Extractor, error) {
	x, ok := e.extractors[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", airline.ErrUnknownAirline, code)
	}
	return x, nil
}

// Extractors lists the registered extractors in registration order.
func (e *Environment) Extractors() []airline.Extractor {
	out := make([]airline.Extractor, 0, len(e.order))
	for _, c := range e.order {
		out = append(out, e.extractors[c])
	}
	return out
}

// Loader builds an Environment. It is called with a context that is not
// cancelled when the caller that triggered the load goes away.
type Loader func(ctx context.Context) (*Environment, error)

// DefaultLoader registers every built-in airline with a relaxed PDF
// validation configuration.
func DefaultLoader(_ context.Context) (*Environment, error) {
	return NewEnvironment(decoder.NewPDFConfiguration(), airline.All()...)
}

// Engine hands out the Environment. The first caller triggers the load and
// concurrent callers wait for the same result. A successful load is kept
// until Reset; a failed one is not, so the next call retries.
type Engine struct {
	load   Loader
	logger *utils.Logger

	group singleflight.Group
	mu    sync.RWMutex
	env   *Environment
	gen   uint64 // bumped by Reset; a load started before it is not kept
}

func New(load Loader, logger *utils.Logger) *Engine {
	if load == nil {
		load = DefaultLoader
	}
	return &Engine{load: load, logger: logger}
}

func (e *Engine) cached() *Environment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.env
}

// Environment returns the runtime, loading it if needed. Cancelling ctx
// stops this caller from waiting but does not abort a load in progress.
func (e *Engine) Environment(ctx context.Context) (*Environment, error) {
	if env := e.cached(); env != nil {
		return env, nil
	}

	ch := e.group.DoChan(loadKey, func() (any, error) {
		e.mu.RLock()
		env, gen := e.env, e.gen
		e.mu.RUnlock()
		if env != nil {
			return env, nil
		}
		env, err := e.safeLoad(context.WithoutCancel(ctx))
		if err != nil {
			e.logger.Error("Extraction runtime failed to load", "error", err)
			return nil, err
		}
		e.mu.Lock()
		stale := e.gen != gen
		if !stale {
			e.env = env
		}
		e.mu.Unlock()
		if stale {
			e.logger.Warn("Extraction runtime reset during load, result not kept")
			return env, nil
		}
		e.logger.Info("Extraction runtime ready", "airlines", len(env.order))
		return env, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRuntimeUnavailable, res.Err)
		}
		return res.Val.(*Environment), nil
	}
}

func (e *Engine) safeLoad(ctx context.Context) (env *Environment, err error) {
	defer func() {
		if r := recover(); r != nil {
			env, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()
	env, err = e.load(ctx)
	if err == nil && env == nil {
		err = errors.New("loader returned no environment")
	}
	return env, err
}

// Ready reports whether the runtime has been loaded.
func (e *Engine) Ready() bool {
	return e.cached() != nil
}

// Reset drops the cached runtime so the next call loads it again. A load
// already in flight still answers its waiters but is not cached.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.env = nil
	e.gen++
	e.mu.Unlock()
	e.group.Forget(loadKey)
}
