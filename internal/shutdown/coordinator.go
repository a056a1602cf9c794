// Package shutdown runs cleanup steps in a fixed order when statusrelay exits,
// whether the stream ended or a signal arrived.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"statusrelay/internal/config"
)

// Phase represents a shutdown phase with ordered execution
type Phase int

const (
	// PhaseSources - Cancel in-flight source commands
	PhaseSources Phase = iota
	// PhaseWatchers - Stop the config file watcher
	PhaseWatchers
	// PhaseLogs - Flush trace and main logs
	PhaseLogs
)

var phases = []Phase{PhaseSources, PhaseWatchers, PhaseLogs}

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseSources:
		return "Sources"
	case PhaseWatchers:
		return "Watchers"
	case PhaseLogs:
		return "Logs"
	default:
		return "Unknown"
	}
}

// ShutdownFunc performs one cleanup step
type ShutdownFunc func(ctx context.Context) error

// Handler represents a registered shutdown handler
type Handler struct {
	Name     string
	Phase    Phase
	Priority int // Higher priority = executed first within same phase
	Fn       ShutdownFunc
	Timeout  time.Duration // 0 = use default
}

// Coordinator runs registered handlers phase by phase, once.
type Coordinator struct {
	mu       sync.Mutex
	handlers map[Phase][]*Handler
	logger   *zap.Logger

	shutdownOnce   sync.Once
	shutdownErr    error
	isShuttingDown atomic.Bool

	defaultTimeout time.Duration
	totalTimeout   time.Duration
}

// NewCoordinator creates a new shutdown coordinator
func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{
		handlers:       make(map[Phase][]*Handler),
		logger:         logger.Named("shutdown"),
		defaultTimeout: config.ShutdownHandlerTimeout,
		totalTimeout:   config.ShutdownTimeout,
	}
}

// Register adds a shutdown handler
func (c *Coordinator) Register(h *Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h.Timeout == 0 {
		h.Timeout = c.defaultTimeout
	}

	handlers := append(c.handlers[h.Phase], h)
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority > handlers[j].Priority
	})
	c.handlers[h.Phase] = handlers
}

// RegisterFunc registers fn with default priority and timeout
func (c *Coordinator) RegisterFunc(name string, phase Phase, fn ShutdownFunc) {
	c.Register(&Handler{
		Name:  name,
		Phase: phase,
		Fn:    fn,
	})
}

// IsShuttingDown returns true once Shutdown has been called
func (c *Coordinator) IsShuttingDown() bool {
	return c.isShuttingDown.Load()
}

// Shutdown runs every handler. Only the first call does any work; later calls
// return its result. A failing handler does not stop the ones after it.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.isShuttingDown.Store(true)
		c.shutdownErr = c.executeShutdown(ctx)
	})
	return c.shutdownErr
}

func (c *Coordinator) executeShutdown(ctx context.Context) error {
	startTime := time.Now()

	c.mu.Lock()
	totalTimeout := c.totalTimeout
	c.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	var allErrors []error
	for _, phase := range phases {
		if err := c.executePhase(shutdownCtx, phase); err != nil {
			allErrors = append(allErrors, fmt.Errorf("phase %s: %w", phase, err))
		}

		if shutdownCtx.Err() != nil {
			allErrors = append(allErrors, fmt.Errorf("shutdown timeout: %w", shutdownCtx.Err()))
			break
		}
	}

	c.logger.Debug("Shutdown finished",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("error_count", len(allErrors)))
	return errors.Join(allErrors...)
}

func (c *Coordinator) executePhase(ctx context.Context, phase Phase) error {
	c.mu.Lock()
	handlers := append([]*Handler(nil), c.handlers[phase]...)
	c.mu.Unlock()

	var phaseErrors []error
	for _, h := range handlers {
		if err := c.executeHandler(ctx, h); err != nil {
			phaseErrors = append(phaseErrors, fmt.Errorf("%s: %w", h.Name, err))
		}
	}
	return errors.Join(phaseErrors...)
}

// executeHandler runs a single handler with timeout
func (c *Coordinator) executeHandler(ctx context.Context, h *Handler) error {
	handlerCtx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Fn(handlerCtx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-handlerCtx.Done():
		err = fmt.Errorf("handler timeout after %v", h.Timeout)
	}

	if err != nil {
		c.logger.Warn("Shutdown handler failed",
			zap.String("name", h.Name),
			zap.String("phase", h.Phase.String()),
			zap.Error(err))
	}
	return err
}

// SetTotalTimeout sets the total timeout for the entire shutdown sequence
func (c *Coordinator) SetTotalTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalTimeout = d
}

// SetDefaultTimeout sets the default timeout for individual handlers
func (c *Coordinator) SetDefaultTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTimeout = d
}

// PhaseHandlers returns handler names for phase in execution order
func (c *Coordinator) PhaseHandlers(phase Phase) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for _, h := range c.handlers[phase] {
		names = append(names, h.Name)
	}
	return names
}
