package domain

// Vec3 is a three-component vector in the detector frame, used for both
// momenta (GeV/c) and positions (cm). Math on vectors lives in the
// kinematics package.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}
