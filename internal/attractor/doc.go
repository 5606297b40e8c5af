// Package attractor implements a spring-damper force field that pulls a
// robotic end-effector toward a point, line, plane, or general affine
// subspace embedded in 3-D space.
//
// The package defines the core pipeline that runs once per sample tick:
//
//   - [Configuration]: immutable, validated snapshot of the attractor
//     parameters (basis, weights, offset, gains, sample interval)
//   - [ProjectionModel]: weighted projection of the effector position onto
//     the region of attraction
//   - [SpringDamper]: the force law with directional-viscosity correction
//   - [SampleLoop]: the fixed-period scheduler tying the above together
//
// # Example
//
//	cfg, _ := attractor.NewConfiguration(attractor.DefaultParams())
//	feed := attractor.NewFeed()
//	loop := attractor.NewSampleLoop(cfg, feed, sink)
//	go loop.Run(ctx)
//
// # Thread Safety
//
// Configuration snapshots are immutable and swapped atomically; a tick never
// observes a torn update. The ProjectionModel cache is private to the loop
// goroutine. Feed cells may be written from any goroutine.
package attractor
