package attractor

import "github.com/go-gl/mathgl/mgl64"

// Below this distance from the target there is no well-defined correction
// direction and the raw force is returned as-is.
const directionEpsilon = 1e-9

// SpringDamper computes the attractor force for an effector at position with
// the given velocity, pulled toward target.
//
// The raw spring-damper law K·(target−position) − C·velocity can carry
// viscous components along directions the projection left unconstrained,
// since the velocity is never itself projected onto the subspace of
// attraction. The result is therefore projected onto the line between the
// position and its target, keeping only the component actually being
// corrected.
func SpringDamper(target, position, velocity mgl64.Vec3, stiffness, damping float64) mgl64.Vec3 {
	d := target.Sub(position)
	raw := d.Mul(stiffness).Sub(velocity.Mul(damping))

	dd := d.Dot(d)
	if dd <= directionEpsilon*directionEpsilon {
		return raw
	}
	return d.Mul(d.Dot(raw) / dd)
}

// AppliedForce sums component forces acting on the effector and maps the
// total through the output transform.
func AppliedForce(transform mgl64.Mat3, forces ...mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, f := range forces {
		sum = sum.Add(f)
	}
	return transform.Mul3x1(sum)
}
