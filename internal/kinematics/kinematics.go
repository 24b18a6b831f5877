// Package kinematics provides the relativistic two-body math used by the
// pairing engine. All functions are pure and operate on nominal masses in
// GeV/c^2 and momenta in GeV/c.
package kinematics

import (
	"math"

	"charm-reso-lab/internal/domain"
)

// Pt returns the transverse momentum component of p.
func Pt(p domain.Vec3) float64 {
	return math.Hypot(p.X, p.Y)
}

// P2 returns the squared magnitude of p.
func P2(p domain.Vec3) float64 {
	return p.X*p.X + p.Y*p.Y + p.Z*p.Z
}

// Norm returns the magnitude of p.
func Norm(p domain.Vec3) float64 {
	return math.Sqrt(P2(p))
}

// Add returns the component-wise sum a + b.
func Add(a, b domain.Vec3) domain.Vec3 {
	return domain.Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// Sub returns the component-wise difference a - b.
func Sub(a, b domain.Vec3) domain.Vec3 {
	return domain.Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Cross returns the cross product a x b.
func Cross(a, b domain.Vec3) domain.Vec3 {
	return domain.Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Energy returns the relativistic energy of a leg with momentum p and rest
// mass m.
func Energy(p domain.Vec3, m float64) float64 {
	return math.Sqrt(P2(p) + m*m)
}

// M2 returns the squared invariant mass of a two-body system built from the
// legs' momenta and their nominal masses: (E1+E2)^2 - |p1+p2|^2.
func M2(p1, p2 domain.Vec3, m1, m2 float64) float64 {
	e := Energy(p1, m1) + Energy(p2, m2)
	return e*e - P2(Add(p1, p2))
}

// InvariantMass returns the invariant mass of a two-body system.
func InvariantMass(p1, p2 domain.Vec3, m1, m2 float64) float64 {
	return math.Sqrt(M2(p1, p2, m1, m2))
}

// PointLineDCA returns the distance of closest approach between point and
// the straight line through origin along dir. A zero direction degenerates
// to the plain point distance.
func PointLineDCA(point, origin, dir domain.Vec3) float64 {
	d := Sub(point, origin)
	n := Norm(dir)
	if n == 0 {
		return Norm(d)
	}
	return Norm(Cross(d, dir)) / n
}
