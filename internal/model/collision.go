package model

import "github.com/go-gl/mathgl/mgl32"

// CollisionMesh is a triangle list with deduplicated vertices.
type CollisionMesh struct {
	Vertices []mgl32.Vec3
	Indices  []int32
}

type CollisionBox struct {
	Transform    Transform
	HalfDiagonal mgl32.Vec3
}

// CollisionCapsule is aligned to the local Y axis. HalfHeight excludes
// the hemispherical caps.
type CollisionCapsule struct {
	Transform  Transform
	HalfHeight float32
	Radius     float32
}

type CollisionCylinder struct {
	Transform    Transform
	HalfDiagonal mgl32.Vec3
}

type CollisionSphere struct {
	Transform Transform
	Radius    float32
}

// Collision groups every collision shape of a model in model space.
type Collision struct {
	ConvexHulls  []CollisionMesh
	ConcaveHulls []CollisionMesh
	Boxes        []CollisionBox
	Capsules     []CollisionCapsule
	Cylinders    []CollisionCylinder
	Spheres      []CollisionSphere
}

// Empty reports whether no shape was imported.
func (c *Collision) Empty() bool {
	return len(c.ConvexHulls) == 0 && len(c.ConcaveHulls) == 0 && len(c.Boxes) == 0 &&
		len(c.Capsules) == 0 && len(c.Cylinders) == 0 && len(c.Spheres) == 0
}
