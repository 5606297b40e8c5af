package attractor

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Default parameter values. Stiffness and damping follow the Force Dimension
// constraint example (N/m and N/(m/s)); the interval targets a 2 kHz loop.
const (
	DefaultStiffness      = 2000.0
	DefaultDamping        = 10.0
	DefaultSampleInterval = 500 * time.Microsecond
	DefaultFailureLimit   = 16

	// A state older than this many sample intervals is considered stale.
	defaultStaleIntervals = 10
)

// Params is the raw, externally supplied parameter set. It is what config
// files and the HTTP parameter surface speak; NewConfiguration validates it
// into an immutable Configuration.
type Params struct {
	Basis          []float64 `json:"basis" yaml:"basis"`
	Offset         []float64 `json:"offset" yaml:"offset"`
	Weights        []float64 `json:"weights" yaml:"weights"`
	ForceTransform []float64 `json:"force_transform" yaml:"force_transform"`
	Stiffness      float64   `json:"stiffness" yaml:"stiffness"`
	Damping        float64   `json:"damping" yaml:"damping"`
	SampleInterval float64   `json:"sample_interval" yaml:"sample_interval"`
	PublishEnabled bool      `json:"publish_enabled" yaml:"publish_enabled"`
	StaleAfter     float64   `json:"stale_after" yaml:"stale_after"`
	FailureLimit   int       `json:"failure_limit" yaml:"failure_limit"`
}

// DefaultParams returns the baseline parameter set: identity basis (free
// movement), zero offset, unit weights, identity output transform.
func DefaultParams() Params {
	return Params{
		Basis:          []float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Offset:         []float64{0, 0, 0},
		Weights:        []float64{1, 1, 1},
		ForceTransform: []float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Stiffness:      DefaultStiffness,
		Damping:        DefaultDamping,
		SampleInterval: DefaultSampleInterval.Seconds(),
		PublishEnabled: true,
		FailureLimit:   DefaultFailureLimit,
	}
}

// Configuration is an immutable, validated snapshot of the attractor
// parameters. Updates build a new Configuration; snapshots are never mutated
// in place.
type Configuration struct {
	Basis          mgl64.Mat3
	Offset         mgl64.Vec3
	Weights        mgl64.Vec3
	Transform      mgl64.Mat3
	Stiffness      float64
	Damping        float64
	SampleInterval time.Duration
	PublishEnabled bool
	StaleAfter     time.Duration
	FailureLimit   int

	params Params
}

// NewConfiguration validates raw parameters and builds a Configuration.
// Validation is all-or-nothing: any rule violation rejects the whole update
// and the caller keeps its previous snapshot.
func NewConfiguration(p Params) (*Configuration, error) {
	basis, err := ReshapeRowMajor(p.Basis)
	if err != nil {
		return nil, err
	}
	if len(p.Offset) != 3 {
		return nil, fmt.Errorf("attractor: offset must be 3 values, got %d", len(p.Offset))
	}
	if len(p.Weights) != 3 {
		return nil, fmt.Errorf("attractor: weights must be 3 values, got %d", len(p.Weights))
	}
	for i, w := range p.Weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: weights[%d] = %g", ErrNegativeWeight, i, w)
		}
	}
	transform := mgl64.Ident3()
	if len(p.ForceTransform) != 0 {
		transform, err = ReshapeRowMajor(p.ForceTransform)
		if err != nil {
			return nil, fmt.Errorf("%w (force_transform)", ErrMalformedBasis)
		}
	}
	if p.SampleInterval <= 0 {
		return nil, fmt.Errorf("%w: got %g s", ErrInvalidInterval, p.SampleInterval)
	}
	if p.Damping < 0 {
		return nil, fmt.Errorf("%w: got %g", ErrNegativeDamping, p.Damping)
	}

	interval := time.Duration(p.SampleInterval * float64(time.Second))
	staleAfter := time.Duration(p.StaleAfter * float64(time.Second))
	if staleAfter <= 0 {
		staleAfter = defaultStaleIntervals * interval
	}
	failureLimit := p.FailureLimit
	if failureLimit <= 0 {
		failureLimit = DefaultFailureLimit
	}

	return &Configuration{
		Basis:          basis,
		Offset:         mgl64.Vec3{p.Offset[0], p.Offset[1], p.Offset[2]},
		Weights:        mgl64.Vec3{p.Weights[0], p.Weights[1], p.Weights[2]},
		Transform:      transform,
		Stiffness:      p.Stiffness,
		Damping:        p.Damping,
		SampleInterval: interval,
		PublishEnabled: p.PublishEnabled,
		StaleAfter:     staleAfter,
		FailureLimit:   failureLimit,
		params:         p,
	}, nil
}

// Params returns the raw parameter set this snapshot was built from.
func (c *Configuration) Params() Params { return c.params }

// ReshapeRowMajor builds a 3x3 matrix from 9 values in row-major order:
// [1 2 3 4 5 6 7 8 9] becomes rows [1 2 3], [4 5 6], [7 8 9].
func ReshapeRowMajor(v []float64) (mgl64.Mat3, error) {
	var m mgl64.Mat3
	if len(v) != 9 {
		return m, fmt.Errorf("%w: got %d values", ErrMalformedBasis, len(v))
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, v[row*3+col])
		}
	}
	return m, nil
}
