package attractor

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFeedEmpty(t *testing.T) {
	feed := NewFeed()

	if _, ok := feed.Latest(); ok {
		t.Error("expected no state before any position sample")
	}
	if got := feed.LatestInput(); got != (mgl64.Vec3{}) {
		t.Errorf("expected zero input force, got %v", got)
	}
}

func TestFeedLatestWins(t *testing.T) {
	feed := NewFeed()
	t0 := time.Now()

	feed.SetPosition(mgl64.Vec3{1, 0, 0}, t0)
	feed.SetPosition(mgl64.Vec3{2, 0, 0}, t0.Add(time.Millisecond))
	feed.SetVelocity(mgl64.Vec3{0, 3, 0}, t0.Add(time.Millisecond))

	state, ok := feed.Latest()
	if !ok {
		t.Fatal("expected state after position samples")
	}
	if state.Position.X() != 2 {
		t.Errorf("expected latest position x=2, got %f", state.Position.X())
	}
	if state.Velocity.Y() != 3 {
		t.Errorf("expected velocity y=3, got %f", state.Velocity.Y())
	}
	if !state.Stamp.Equal(t0.Add(time.Millisecond)) {
		t.Errorf("expected the latest position stamp, got %v", state.Stamp)
	}
}

func TestFeedVelocityDefaultsZero(t *testing.T) {
	feed := NewFeed()
	feed.SetPosition(mgl64.Vec3{1, 1, 1}, time.Now())

	state, ok := feed.Latest()
	if !ok {
		t.Fatal("expected state")
	}
	if state.Velocity != (mgl64.Vec3{}) {
		t.Errorf("expected zero velocity before any sample, got %v", state.Velocity)
	}
}

func TestFeedForceInput(t *testing.T) {
	feed := NewFeed()
	feed.SetForceInput(mgl64.Vec3{0, 0, -9.8}, time.Now())

	if got := feed.LatestInput(); got != (mgl64.Vec3{0, 0, -9.8}) {
		t.Errorf("expected input force preserved, got %v", got)
	}
}
