package attractor

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type captureSink struct {
	ch chan ForceCommand
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan ForceCommand, 256)}
}

func (s *captureSink) Publish(cmd ForceCommand) error {
	s.ch <- cmd
	return nil
}

func (s *captureSink) next(t *testing.T) ForceCommand {
	t.Helper()
	select {
	case cmd := <-s.ch:
		return cmd
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a force command")
		return ForceCommand{}
	}
}

type captureObserver struct {
	ch chan ForceCommand
}

func (o *captureObserver) OnTick(_ EffectorState, cmd ForceCommand) {
	o.ch <- cmd
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startLoop(t *testing.T, cfg *Configuration, feed *Feed, sink ForceSink, opts ...Option) (*SampleLoop, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts = append(opts, WithClock(clock), WithLogger(discardLogger()))
	loop := NewSampleLoop(cfg, feed, sink, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	t.Cleanup(func() {
		loop.Stop()
		<-loop.Done()
	})

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	return loop, clock
}

func advance(clock *clockwork.FakeClock, d time.Duration) {
	clock.Advance(d)
}

func TestLoopPublishesForce(t *testing.T) {
	p := DefaultParams()
	p.Basis = make([]float64, 9)
	p.Offset = []float64{1, 0, 0}
	p.Damping = 0
	cfg, err := NewConfiguration(p)
	require.NoError(t, err)

	feed := NewFeed()
	sink := newCaptureSink()
	loop, clock := startLoop(t, cfg, feed, sink)

	feed.SetPosition(mgl64.Vec3{}, clock.Now())
	advance(clock, cfg.SampleInterval)

	cmd := sink.next(t)
	assert.True(t, cmd.Force.ApproxEqualThreshold(mgl64.Vec3{2000, 0, 0}, 1e-9),
		"expected [2000 0 0], got %v", cmd.Force)
	assert.Equal(t, uint64(1), cmd.Tick)
	assert.Equal(t, Running, loop.State())
}

func TestLoopSkipsWithoutState(t *testing.T) {
	cfg, err := NewConfiguration(DefaultParams())
	require.NoError(t, err)

	feed := NewFeed()
	sink := newCaptureSink()
	loop, clock := startLoop(t, cfg, feed, sink)

	advance(clock, cfg.SampleInterval)
	require.Eventually(t, func() bool { return loop.Stats().Skips == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, sink.ch)

	// The loop stays live and picks up the first state that arrives.
	feed.SetPosition(mgl64.Vec3{0.01, 0, 0}, clock.Now())
	advance(clock, cfg.SampleInterval)
	sink.next(t)
}

func TestLoopSkipsStaleState(t *testing.T) {
	p := DefaultParams()
	p.SampleInterval = 0.001
	p.StaleAfter = 0.001
	cfg, err := NewConfiguration(p)
	require.NoError(t, err)

	feed := NewFeed()
	sink := newCaptureSink()
	loop, clock := startLoop(t, cfg, feed, sink)

	feed.SetPosition(mgl64.Vec3{0.01, 0, 0}, clock.Now())
	advance(clock, cfg.SampleInterval)
	sink.next(t)

	// No new sample: the state ages past the threshold and ticks skip.
	advance(clock, cfg.SampleInterval)
	require.Eventually(t, func() bool { return loop.Stats().Skips == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, sink.ch)
}

func TestLoopPublishGate(t *testing.T) {
	p := DefaultParams()
	p.PublishEnabled = false
	cfg, err := NewConfiguration(p)
	require.NoError(t, err)

	obs := &captureObserver{ch: make(chan ForceCommand, 16)}
	feed := NewFeed()
	sink := newCaptureSink()
	_, clock := startLoop(t, cfg, feed, sink, WithObserver(obs))

	feed.SetPosition(mgl64.Vec3{0.01, 0, 0}, clock.Now())
	advance(clock, cfg.SampleInterval)

	// The tick still computes; only emission is gated.
	select {
	case <-obs.ch:
	case <-time.After(waitFor):
		t.Fatal("observer saw no tick")
	}
	assert.Empty(t, sink.ch)
}

func TestLoopConfigSwap(t *testing.T) {
	p := DefaultParams()
	p.Basis = make([]float64, 9)
	p.Offset = []float64{1, 0, 0}
	p.Damping = 0
	cfg, err := NewConfiguration(p)
	require.NoError(t, err)

	feed := NewFeed()
	sink := newCaptureSink()
	loop, clock := startLoop(t, cfg, feed, sink)

	feed.SetPosition(mgl64.Vec3{}, clock.Now())
	advance(clock, cfg.SampleInterval)
	first := sink.next(t)
	assert.InDelta(t, 2000, first.Force.X(), 1e-9)

	p.Stiffness = 1000
	next, err := NewConfiguration(p)
	require.NoError(t, err)
	loop.Swap(next)

	feed.SetPosition(mgl64.Vec3{}, clock.Now())
	advance(clock, cfg.SampleInterval)
	second := sink.next(t)
	assert.InDelta(t, 1000, second.Force.X(), 1e-9)
}

func TestLoopFailureLimit(t *testing.T) {
	p := DefaultParams()
	p.Stiffness = math.NaN()
	p.FailureLimit = 2
	cfg, err := NewConfiguration(p)
	require.NoError(t, err)

	feed := NewFeed()
	sink := newCaptureSink()
	clock := clockwork.NewFakeClock()
	loop := NewSampleLoop(cfg, feed, sink, WithClock(clock), WithLogger(discardLogger()))

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	feed.SetPosition(mgl64.Vec3{0.01, 0, 0}, clock.Now())
	advance(clock, cfg.SampleInterval)
	require.Eventually(t, func() bool { return loop.Stats().Failures == 1 }, waitFor, time.Millisecond)

	feed.SetPosition(mgl64.Vec3{0.01, 0, 0}, clock.Now())
	advance(clock, cfg.SampleInterval)

	select {
	case err := <-errCh:
		require.Error(t, err)
		var tickErr *TickError
		assert.ErrorAs(t, err, &tickErr)
		assert.ErrorIs(t, err, ErrNumerical)
	case <-time.After(waitFor):
		t.Fatal("loop did not halt at the failure limit")
	}
	assert.Equal(t, Stopped, loop.State())
	assert.Empty(t, sink.ch)
}

func TestLoopStop(t *testing.T) {
	cfg, err := NewConfiguration(DefaultParams())
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	loop := NewSampleLoop(cfg, NewFeed(), newCaptureSink(), WithClock(clock), WithLogger(discardLogger()))

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	require.Equal(t, Running, loop.State())

	loop.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, Stopped, loop.State())

	assert.ErrorIs(t, loop.Run(context.Background()), ErrLoopAlreadyRunning)
}

func TestLoopContextCancel(t *testing.T) {
	cfg, err := NewConfiguration(DefaultParams())
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	loop := NewSampleLoop(cfg, NewFeed(), newCaptureSink(), WithClock(clock), WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("loop ignored cancellation")
	}
}

func TestLoopIntervalRearm(t *testing.T) {
	p := DefaultParams()
	p.SampleInterval = 0.001
	cfg, err := NewConfiguration(p)
	require.NoError(t, err)

	feed := NewFeed()
	sink := newCaptureSink()
	loop, clock := startLoop(t, cfg, feed, sink)

	p.SampleInterval = 0.002
	p.StaleAfter = 0.1
	next, err := NewConfiguration(p)
	require.NoError(t, err)
	loop.Swap(next)

	// The re-armed ticker fires at the new period.
	require.Eventually(t, func() bool {
		feed.SetPosition(mgl64.Vec3{0.01, 0, 0}, clock.Now())
		advance(clock, next.SampleInterval)
		return loop.Stats().Ticks > 0
	}, waitFor, time.Millisecond)
	sink.next(t)
}
