package attractor

import (
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Sample is a timestamped 3-vector received from an external collaborator.
type Sample struct {
	Value mgl64.Vec3
	Stamp time.Time
}

// EffectorState is the most recent known state of the effector. Velocity is
// zero until a velocity sample arrives; Stamp is the position sample's stamp.
type EffectorState struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Stamp    time.Time
}

// ForceCommand is the per-tick output of the sample loop.
type ForceCommand struct {
	Force mgl64.Vec3
	Tick  uint64
}

// StateSource supplies the latest effector state. ok is false until a
// position sample has ever been received.
type StateSource interface {
	Latest() (state EffectorState, ok bool)
}

// InputSource supplies the latest externally commanded force, summed into
// the output each tick. The zero vector when nothing has been supplied.
type InputSource interface {
	LatestInput() mgl64.Vec3
}

// ForceSink receives force commands from the loop. Publish must not block;
// a slow consumer drops commands rather than stalling the tick.
type ForceSink interface {
	Publish(ForceCommand) error
}

// Observer is notified after every completed tick, published or not.
type Observer interface {
	OnTick(state EffectorState, cmd ForceCommand)
}

// Feed holds the latest position, velocity, and input-force samples as
// atomically swapped cells. Writers may be any goroutine; the loop only ever
// reads the most recent value and owns no history.
type Feed struct {
	position atomic.Pointer[Sample]
	velocity atomic.Pointer[Sample]
	forceIn  atomic.Pointer[Sample]
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) SetPosition(v mgl64.Vec3, at time.Time) {
	f.position.Store(&Sample{Value: v, Stamp: at})
}

func (f *Feed) SetVelocity(v mgl64.Vec3, at time.Time) {
	f.velocity.Store(&Sample{Value: v, Stamp: at})
}

func (f *Feed) SetForceInput(v mgl64.Vec3, at time.Time) {
	f.forceIn.Store(&Sample{Value: v, Stamp: at})
}

// Latest implements StateSource.
func (f *Feed) Latest() (EffectorState, bool) {
	pos := f.position.Load()
	if pos == nil {
		return EffectorState{}, false
	}
	state := EffectorState{Position: pos.Value, Stamp: pos.Stamp}
	if vel := f.velocity.Load(); vel != nil {
		state.Velocity = vel.Value
	}
	return state, true
}

// LatestInput implements InputSource.
func (f *Feed) LatestInput() mgl64.Vec3 {
	if in := f.forceIn.Load(); in != nil {
		return in.Value
	}
	return mgl64.Vec3{}
}
