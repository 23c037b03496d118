package mathutil

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Decompose splits an affine column-major matrix into translation,
// rotation and scale so that m == T * R * S. A negative determinant is
// folded into the X scale. Degenerate axes keep a zero scale and the
// identity contribution for rotation.
func Decompose(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = mgl32.Vec3{m[12], m[13], m[14]}

	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i, c := range cols {
		s[i] = c.Len()
	}
	if m.Mat3().Det() < 0 {
		s[0] = -s[0]
	}

	rot := mgl32.Ident4()
	for i, c := range cols {
		if math32.Abs(s[i]) < 1e-12 {
			continue
		}
		c = c.Mul(1 / s[i])
		rot[i*4+0], rot[i*4+1], rot[i*4+2] = c[0], c[1], c[2]
	}
	r = mgl32.Mat4ToQuat(rot).Normalize()
	return t, r, s
}

// Compose builds T * R * S.
func Compose(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// RowMajor returns m laid out row by row.
func RowMajor(m mgl32.Mat4) [16]float32 {
	return [16]float32(m.Transpose())
}
