package importer

import (
	"mdlconv/internal/mathutil"
	"mdlconv/internal/model"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	derivativeEpsilon = 1e-2
	rotationEpsilon   = 1e-6
)

// ReduceKeyFrames removes interior keys that add no information: position
// and scale keys where the curve keeps the same slope on both sides, and
// rotation keys equal to both neighbours. The first and last key of every
// curve stay. It returns the number of removed keys.
func ReduceKeyFrames(k *model.KeyFrames) int {
	before := len(k.Positions) + len(k.Rotations) + len(k.Scalings)
	k.Positions = reduceVec3(k.Positions)
	k.Scalings = reduceVec3(k.Scalings)
	k.Rotations = reduceQuat(k.Rotations)
	return before - (len(k.Positions) + len(k.Rotations) + len(k.Scalings))
}

func slope(a, b model.Vec3Key) mgl32.Vec3 {
	dt := b.Time - a.Time
	if dt <= 0 {
		return mgl32.Vec3{}
	}
	return b.Value.Sub(a.Value).Mul(1 / dt)
}

func sameSlope(a, b mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math32.Abs(a[i]-b[i]) > derivativeEpsilon {
			return false
		}
	}
	return true
}

func reduceVec3(keys []model.Vec3Key) []model.Vec3Key {
	if len(keys) <= 2 {
		return keys
	}
	out := []model.Vec3Key{keys[0]}
	for i := 1; i < len(keys)-1; i++ {
		if sameSlope(slope(keys[i-1], keys[i]), slope(keys[i], keys[i+1])) {
			continue
		}
		out = append(out, keys[i])
	}
	return append(out, keys[len(keys)-1])
}

func reduceQuat(keys []model.QuatKey) []model.QuatKey {
	if len(keys) <= 2 {
		return keys
	}
	out := []model.QuatKey{keys[0]}
	for i := 1; i < len(keys)-1; i++ {
		if mathutil.QuatEqual(keys[i-1].Value, keys[i].Value, rotationEpsilon) &&
			mathutil.QuatEqual(keys[i].Value, keys[i+1].Value, rotationEpsilon) {
			continue
		}
		out = append(out, keys[i])
	}
	return append(out, keys[len(keys)-1])
}
