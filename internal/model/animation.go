package model

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3Key is a position or scale sample at Time seconds.
type Vec3Key struct {
	Time  float32
	Value mgl32.Vec3
}

// QuatKey is a rotation sample at Time seconds.
type QuatKey struct {
	Time  float32
	Value mgl32.Quat
}

// KeyFrames are the per-node curves of one animation. Each curve is kept
// sorted by time with unique times.
type KeyFrames struct {
	Positions []Vec3Key
	Rotations []QuatKey
	Scalings  []Vec3Key
}

func setVec3(keys []Vec3Key, t float32, v mgl32.Vec3) ([]Vec3Key, bool) {
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time >= t })
	if i < len(keys) && keys[i].Time == t {
		keys[i].Value = v
		return keys, true
	}
	keys = append(keys, Vec3Key{})
	copy(keys[i+1:], keys[i:])
	keys[i] = Vec3Key{Time: t, Value: v}
	return keys, false
}

// SetPosition stores a position key. It reports whether a key at the same
// time was overwritten.
func (k *KeyFrames) SetPosition(t float32, v mgl32.Vec3) (replaced bool) {
	k.Positions, replaced = setVec3(k.Positions, t, v)
	return replaced
}

// SetScaling stores a scale key, overwriting any key at the same time.
func (k *KeyFrames) SetScaling(t float32, v mgl32.Vec3) (replaced bool) {
	k.Scalings, replaced = setVec3(k.Scalings, t, v)
	return replaced
}

// SetRotation stores a rotation key, overwriting any key at the same time.
func (k *KeyFrames) SetRotation(t float32, q mgl32.Quat) bool {
	i := sort.Search(len(k.Rotations), func(i int) bool { return k.Rotations[i].Time >= t })
	if i < len(k.Rotations) && k.Rotations[i].Time == t {
		k.Rotations[i].Value = q
		return true
	}
	k.Rotations = append(k.Rotations, QuatKey{})
	copy(k.Rotations[i+1:], k.Rotations[i:])
	k.Rotations[i] = QuatKey{Time: t, Value: q}
	return false
}

// HasAnyKeys reports whether at least one curve is non-empty.
func (k *KeyFrames) HasAnyKeys() bool {
	return len(k.Positions) > 0 || len(k.Rotations) > 0 || len(k.Scalings) > 0
}

// Animation is a named clip. PerNode is keyed by model node index.
type Animation struct {
	Name     string
	Duration float32 // seconds
	PerNode  map[int]*KeyFrames
}

func NewAnimation(name string, duration float32) *Animation {
	return &Animation{Name: name, Duration: duration, PerNode: map[int]*KeyFrames{}}
}

// Nodes returns the animated node indices in ascending order.
func (a *Animation) Nodes() []int {
	nodes := make([]int, 0, len(a.PerNode))
	for n := range a.PerNode {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	return nodes
}
