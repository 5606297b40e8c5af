package attractor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jonboulle/clockwork"

	"github.com/nmlab/attractor/internal/metrics"
)

// LoopState reports the lifecycle of a SampleLoop.
type LoopState int32

const (
	Idle LoopState = iota
	Running
	Stopped
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Ticks     uint64
	Skips     uint64
	Failures  uint64
	Published uint64
}

// SampleLoop runs the attractor pipeline at a fixed period: snapshot the
// configuration, read the latest effector state, project, compute the force,
// and hand it to the sink when publication is enabled.
//
// Ticks are independent; a late tick never batches to catch up, it simply
// uses the latest available state. Configuration swaps apply atomically
// between ticks.
type SampleLoop struct {
	clock     clockwork.Clock
	source    StateSource
	input     InputSource
	sink      ForceSink
	model     *ProjectionModel
	observers []Observer
	logger    *slog.Logger

	cfg          atomic.Pointer[Configuration]
	reconfigured chan struct{}

	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Owned by the Run goroutine.
	tick          uint64
	failureStreak int

	ticks     atomic.Uint64
	skips     atomic.Uint64
	failures  atomic.Uint64
	published atomic.Uint64
}

// Option configures a SampleLoop at construction time.
type Option func(*SampleLoop)

// WithClock substitutes the loop's clock, used by tests to drive ticks
// deterministically.
func WithClock(c clockwork.Clock) Option {
	return func(l *SampleLoop) { l.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *SampleLoop) { l.logger = logger }
}

// WithInput attaches a source of externally commanded forces, summed into
// the output each tick.
func WithInput(in InputSource) Option {
	return func(l *SampleLoop) { l.input = in }
}

// WithObserver registers an observer notified after every completed tick.
func WithObserver(o Observer) Option {
	return func(l *SampleLoop) { l.observers = append(l.observers, o) }
}

func NewSampleLoop(cfg *Configuration, source StateSource, sink ForceSink, opts ...Option) *SampleLoop {
	l := &SampleLoop{
		clock:        clockwork.NewRealClock(),
		source:       source,
		sink:         sink,
		model:        NewProjectionModel(),
		logger:       slog.Default(),
		reconfigured: make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	l.cfg.Store(cfg)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the current configuration snapshot.
func (l *SampleLoop) Config() *Configuration { return l.cfg.Load() }

// Swap atomically replaces the configuration snapshot. The running loop
// observes the new snapshot on its next tick; an in-flight tick completes on
// the old one. Swap never blocks on the loop.
func (l *SampleLoop) Swap(cfg *Configuration) {
	l.cfg.Store(cfg)
	select {
	case l.reconfigured <- struct{}{}:
	default:
	}
}

// State reports the loop lifecycle state.
func (l *SampleLoop) State() LoopState { return LoopState(l.state.Load()) }

// Stats returns a snapshot of the loop counters.
func (l *SampleLoop) Stats() Stats {
	return Stats{
		Ticks:     l.ticks.Load(),
		Skips:     l.skips.Load(),
		Failures:  l.failures.Load(),
		Published: l.published.Load(),
	}
}

// Stop requests a transition to Stopped. The in-flight tick, if any,
// completes first; no new tick is scheduled afterward. Safe to call more
// than once and before Run.
func (l *SampleLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed when Run has returned.
func (l *SampleLoop) Done() <-chan struct{} { return l.done }

// Run drives the loop until the context is canceled, Stop is called, or
// consecutive numerical failures exceed the configured limit. It returns nil
// on Stop, the context error on cancellation, and a TickError when the
// failure limit is hit.
func (l *SampleLoop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrLoopAlreadyRunning
	}
	metrics.LoopState.Set(float64(Running))
	defer func() {
		l.state.Store(int32(Stopped))
		metrics.LoopState.Set(float64(Stopped))
		close(l.done)
	}()

	interval := l.cfg.Load().SampleInterval
	ticker := l.clock.NewTicker(interval)
	defer ticker.Stop()
	l.logger.Info("sample loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("sample loop canceled")
			return ctx.Err()
		case <-l.stop:
			l.logger.Info("sample loop stopped", "ticks", l.ticks.Load())
			return nil
		case <-l.reconfigured:
			if next := l.cfg.Load().SampleInterval; next != interval {
				interval = next
				ticker.Reset(interval)
				l.logger.Info("sample interval updated", "interval", interval)
			}
		case <-ticker.Chan():
			cfg := l.cfg.Load()
			if err := l.runTick(cfg); err != nil {
				l.logger.Error("sample loop halted", "err", err)
				return err
			}
			if cfg.SampleInterval != interval {
				interval = cfg.SampleInterval
				ticker.Reset(interval)
			}
		}
	}
}

func (l *SampleLoop) runTick(cfg *Configuration) error {
	state, ok := l.source.Latest()
	if !ok {
		l.skip("no_state", 0)
		return nil
	}
	if age := l.clock.Now().Sub(state.Stamp); age > cfg.StaleAfter {
		l.skip("stale", age)
		return nil
	}

	l.tick++

	if err := l.model.Update(cfg); err != nil {
		return l.fail(cfg, err)
	}
	target := l.model.Project(state.Position)
	force := SpringDamper(target, state.Position, state.Velocity, cfg.Stiffness, cfg.Damping)

	var input mgl64.Vec3
	if l.input != nil {
		input = l.input.LatestInput()
	}
	applied := AppliedForce(cfg.Transform, force, input)
	if !finiteVec(applied) {
		return l.fail(cfg, ErrNumerical)
	}

	l.failureStreak = 0
	l.ticks.Add(1)
	metrics.TicksTotal.Inc()

	cmd := ForceCommand{Force: applied, Tick: l.tick}
	for _, o := range l.observers {
		o.OnTick(state, cmd)
	}

	if cfg.PublishEnabled {
		if err := l.sink.Publish(cmd); err != nil {
			l.logger.Warn("force publish failed", "tick", l.tick, "err", err)
		} else {
			l.published.Add(1)
			metrics.PublishedForcesTotal.Inc()
		}
	}
	return nil
}

func (l *SampleLoop) skip(reason string, age time.Duration) {
	l.skips.Add(1)
	metrics.SkippedTicksTotal.WithLabelValues(reason).Inc()
	l.logger.Debug("tick skipped", "reason", reason, "age", age)
}

// fail records a numerical failure. Isolated failures are absorbed to keep
// the loop live; a streak past the configured limit halts it.
func (l *SampleLoop) fail(cfg *Configuration, err error) error {
	l.failureStreak++
	l.failures.Add(1)
	metrics.NumericalFailuresTotal.Inc()
	l.logger.Warn("tick failed", "tick", l.tick, "streak", l.failureStreak, "err", err)
	if l.failureStreak >= cfg.FailureLimit {
		return &TickError{Tick: l.tick, Wrapped: err}
	}
	return nil
}
