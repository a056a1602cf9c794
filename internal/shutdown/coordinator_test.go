package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegister_PriorityOrder(t *testing.T) {
	c := NewCoordinator(zap.NewNop())
	noop := func(context.Context) error { return nil }

	c.Register(&Handler{Name: "low", Phase: PhaseLogs, Priority: 1, Fn: noop})
	c.Register(&Handler{Name: "high", Phase: PhaseLogs, Priority: 10, Fn: noop})
	c.Register(&Handler{Name: "also-low", Phase: PhaseLogs, Priority: 1, Fn: noop})

	assert.Equal(t, []string{"high", "low", "also-low"}, c.PhaseHandlers(PhaseLogs))
	assert.Empty(t, c.PhaseHandlers(PhaseSources))
}

func TestShutdown_PhasesInOrder(t *testing.T) {
	c := NewCoordinator(zap.NewNop())

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	c.RegisterFunc("logger", PhaseLogs, record("logger"))
	c.RegisterFunc("watcher", PhaseWatchers, record("watcher"))
	c.RegisterFunc("commands", PhaseSources, record("commands"))

	require.NoError(t, c.Shutdown(context.Background()))
	assert.Equal(t, []string{"commands", "watcher", "logger"}, order)
	assert.True(t, c.IsShuttingDown())
}

func TestShutdown_ErrorDoesNotStopLaterHandlers(t *testing.T) {
	c := NewCoordinator(zap.NewNop())
	boom := errors.New("boom")

	var ran atomic.Bool
	c.RegisterFunc("watcher", PhaseWatchers, func(context.Context) error { return boom })
	c.RegisterFunc("logger", PhaseLogs, func(context.Context) error {
		ran.Store(true)
		return nil
	})

	err := c.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "phase Watchers")
	assert.True(t, ran.Load())
}

func TestShutdown_HandlerTimeout(t *testing.T) {
	c := NewCoordinator(zap.NewNop())

	c.Register(&Handler{
		Name:    "stuck",
		Phase:   PhaseSources,
		Timeout: 50 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	start := time.Now()
	err := c.Shutdown(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestShutdown_TotalTimeout(t *testing.T) {
	c := NewCoordinator(zap.NewNop())
	c.SetTotalTimeout(50 * time.Millisecond)

	c.Register(&Handler{
		Name:    "stuck",
		Phase:   PhaseWatchers,
		Timeout: 5 * time.Second,
		Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.SetTotalTimeout(50 * time.Millisecond)
	}()

	start := time.Now()
	err := c.Shutdown(context.Background())
	wg.Wait()

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShutdown_OnlyOnce(t *testing.T) {
	c := NewCoordinator(zap.NewNop())

	var calls atomic.Int32
	c.RegisterFunc("count", PhaseLogs, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, c.Shutdown(context.Background()))
	require.NoError(t, c.Shutdown(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Sources", PhaseSources.String())
	assert.Equal(t, "Watchers", PhaseWatchers.String())
	assert.Equal(t, "Logs", PhaseLogs.String())
	assert.Equal(t, "Unknown", Phase(42).String())
}
