package mathutil

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// EulerToQuat converts Euler XYZ angles (radians) to a quaternion.
// Matches MU Online's bmdAngleToQuaternion function.
func EulerToQuat(rx, ry, rz float32) mgl32.Quat {
	cx, sx := math32.Cos(rx*0.5), math32.Sin(rx*0.5)
	cy, sy := math32.Cos(ry*0.5), math32.Sin(ry*0.5)
	cz, sz := math32.Cos(rz*0.5), math32.Sin(rz*0.5)

	return mgl32.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl32.Vec3{
			sx*cy*cz - cx*sy*sz,
			cx*sy*cz + sx*cy*sz,
			cx*cy*sz - sx*sy*cz,
		},
	}
}

// QuatEqual reports whether a and b are component-wise equal within eps.
// q and -q are treated as different.
func QuatEqual(a, b mgl32.Quat, eps float32) bool {
	return math32.Abs(a.W-b.W) <= eps &&
		a.V.ApproxEqualThreshold(b.V, eps)
}
