// Package skeleton computes bind-pose transforms for Euler-keyed bone
// hierarchies such as the ones stored in BMD files.
package skeleton

import (
	"mdlconv/internal/mathutil"

	"github.com/go-gl/mathgl/mgl32"
)

// Joint is the bind pose of one bone. Parent is -1 for roots; a parent
// index that is not smaller than the joint's own index is treated as a root.
type Joint struct {
	Parent   int
	Dummy    bool
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler XYZ radians
}

// Local returns the joint's transform relative to its parent.
func (j Joint) Local() mgl32.Mat4 {
	q := mathutil.EulerToQuat(j.Rotation[0], j.Rotation[1], j.Rotation[2])
	return mgl32.Translate3D(j.Position[0], j.Position[1], j.Position[2]).Mul4(q.Mat4())
}

// HasParent reports whether joint i chains to an earlier joint.
func HasParent(joints []Joint, i int) bool {
	p := joints[i].Parent
	return p >= 0 && p < i
}

// BuildWorldMatrices computes the world transform for each joint.
// Dummy joints keep the identity.
func BuildWorldMatrices(joints []Joint) []mgl32.Mat4 {
	worlds := make([]mgl32.Mat4, len(joints))
	for i := range worlds {
		worlds[i] = mgl32.Ident4()
	}

	for i, j := range joints {
		if j.Dummy {
			continue
		}
		local := j.Local()
		if HasParent(joints, i) {
			worlds[i] = worlds[j.Parent].Mul4(local)
		} else {
			worlds[i] = local
		}
	}
	return worlds
}

// OffsetMatrices returns the inverse of every world matrix: the transform
// from model space into each joint's space.
func OffsetMatrices(worlds []mgl32.Mat4) []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(worlds))
	for i, w := range worlds {
		out[i] = w.Inv()
	}
	return out
}

// Pose moves bone-space points into model space.
// Rigid skinning: one joint per point, weight 1.
type Pose struct {
	worlds []mgl32.Mat4
}

// NewPose builds the bind pose of joints.
func NewPose(joints []Joint) *Pose {
	return &Pose{worlds: BuildWorldMatrices(joints)}
}

// World returns the world matrix of joint i, or the identity when i is
// out of range.
func (p *Pose) World(i int) mgl32.Mat4 {
	if i < 0 || i >= len(p.worlds) {
		return mgl32.Ident4()
	}
	return p.worlds[i]
}

// Worlds returns every world matrix.
func (p *Pose) Worlds() []mgl32.Mat4 { return p.worlds }

// Point transforms a bone-space position.
func (p *Pose) Point(joint int, v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(v, p.World(joint))
}

// Normal rotates a bone-space direction and renormalizes it.
func (p *Pose) Normal(joint int, n mgl32.Vec3) mgl32.Vec3 {
	out := p.World(joint).Mat3().Mul3x1(n)
	if l := out.Len(); l > 0 {
		return out.Mul(1 / l)
	}
	return out
}
