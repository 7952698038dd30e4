package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/airline-extractor/internal/airline"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

func TestEngine_DefaultLoader(t *testing.T) {
	e := New(nil, utils.NewNopLogger())
	env, err := e.Environment(context.Background())
	require.NoError(t, err)
	require.NotNil(t, env.PDFConfig)

	for _, code := range []airline.Code{airline.Gol, airline.Azul, airline.Latam} {
		x, err := env.Extractor(code)
		require.NoError(t, err)
		assert.Equal(t, code, x.Airline())
	}
	_, err = env.Extractor("XX")
	assert.ErrorIs(t, err, airline.ErrUnknownAirline)
	assert.Len(t, env.Extractors(), 3)
	assert.True(t, e.Ready())
}

func TestEngine_ConcurrentCallersShareOneLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	e := New(func(ctx context.Context) (*Environment, error) {
		calls.Add(1)
		<-release
		return DefaultLoader(ctx)
	}, utils.NewNopLogger())

	const callers = 16
	var wg sync.WaitGroup
	envs := make([]*Environment, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			envs[i], errs[i] = e.Environment(context.Background())
		}()
	}

	// let the callers pile up behind the first load
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, envs[0], envs[i])
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := e.Environment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEngine_FailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	e := New(func(ctx context.Context) (*Environment, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return DefaultLoader(ctx)
	}, utils.NewNopLogger())

	_, err := e.Environment(context.Background())
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.False(t, e.Ready())

	env, err := e.Environment(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, env)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEngine_LoaderPanicIsAnError(t *testing.T) {
	e := New(func(context.Context) (*Environment, error) {
		panic("bad init")
	}, utils.NewNopLogger())

	_, err := e.Environment(context.Background())
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
	assert.Contains(t, err.Error(), "bad init")
}

func TestEngine_CancelledCallerStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	e := New(func(ctx context.Context) (*Environment, error) {
		<-release
		return DefaultLoader(ctx)
	}, utils.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Environment(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	env, err := e.Environment(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, env)
}

func TestEngine_Reset(t *testing.T) {
	var calls atomic.Int32
	e := New(func(ctx context.Context) (*Environment, error) {
		calls.Add(1)
		return DefaultLoader(ctx)
	}, utils.NewNopLogger())

	first, err := e.Environment(context.Background())
	require.NoError(t, err)
	e.Reset()
	second, err := e.Environment(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEngine_ResetDuringLoadDropsResult(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	e := New(func(ctx context.Context) (*Environment, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return DefaultLoader(ctx)
	}, utils.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := e.Environment(context.Background())
		done <- err
	}()

	<-started
	e.Reset()
	close(release)
	require.NoError(t, <-done)
	assert.False(t, e.Ready())

	_, err := e.Environment(context.Background())
	require.NoError(t, err)
	assert.True(t, e.Ready())
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewEnvironment_DuplicateAirline(t *testing.T) {
	_, err := NewEnvironment(nil, airline.NewGolExtractor(), airline.NewGolExtractor())
	assert.Error(t, err)
}
