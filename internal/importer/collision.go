package importer

import (
	"strings"

	"mdlconv/internal/mathutil"
	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

type collisionKind int

const (
	collisionNone collisionKind = iota
	collisionConcave
	collisionConvex
	collisionBox
	collisionCapsule
	collisionCylinder
	collisionSphere
)

var collisionPrefixes = []struct {
	prefix string
	kind   collisionKind
}{
	{"SCConcave_", collisionConcave},
	{"SCTriMesh_", collisionConcave},
	{"SCConvex_", collisionConvex},
	{"SCBox_", collisionBox},
	{"SCCapsule_", collisionCapsule},
	{"SCCylinder_", collisionCylinder},
	{"SCSphere_", collisionSphere},
}

// collisionKindOf classifies a node by its name prefix.
func collisionKindOf(name string) collisionKind {
	for _, p := range collisionPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind
		}
	}
	return collisionNone
}

type collisionInstance struct {
	kind  collisionKind
	mesh  int
	space mgl32.Mat4
	node  string
}

func (p *parser) importCollision(correction mgl32.Mat4) error {
	cache := map[int]*scene.Mesh{}
	col := &p.m.Collision
	for _, ci := range p.collision {
		src, ok := cache[ci.mesh]
		if !ok {
			if ci.mesh < 0 || ci.mesh >= p.src.NumMeshes() {
				return expectf("collision node %q: mesh %d out of range [0,%d)", ci.node, ci.mesh, p.src.NumMeshes())
			}
			var err error
			if src, err = p.src.Mesh(ci.mesh); err != nil {
				return err
			}
			cache[ci.mesh] = src
		}
		world := correction.Mul4(ci.space)

		switch ci.kind {
		case collisionConcave, collisionConvex:
			cm, err := collisionMesh(src, world)
			if err != nil {
				return err
			}
			if ci.kind == collisionConcave {
				col.ConcaveHulls = append(col.ConcaveHulls, cm)
			} else {
				col.ConvexHulls = append(col.ConvexHulls, cm)
			}
			continue
		}

		box := mathutil.EmptyBox()
		for _, v := range src.Positions {
			box.Expand(v)
		}
		if box.IsEmpty() {
			p.log.Warn("collision shape without vertices", "node", ci.node)
			continue
		}
		c := box.Center()
		tr := model.TransformFromMat4(world.Mul4(mgl32.Translate3D(c[0], c[1], c[2])))
		ext := box.SortedHalfExtents()

		switch ci.kind {
		case collisionBox:
			col.Boxes = append(col.Boxes, model.CollisionBox{Transform: tr, HalfDiagonal: box.HalfDiagonal()})
		case collisionCapsule:
			radius := ext[1]
			halfHeight := ext[0] - radius
			if halfHeight < 0 {
				halfHeight = 0
			}
			col.Capsules = append(col.Capsules, model.CollisionCapsule{Transform: tr, HalfHeight: halfHeight, Radius: radius})
		case collisionCylinder:
			col.Cylinders = append(col.Cylinders, model.CollisionCylinder{Transform: tr, HalfDiagonal: box.HalfDiagonal()})
		case collisionSphere:
			col.Spheres = append(col.Spheres, model.CollisionSphere{Transform: tr, Radius: ext[0]})
		}
	}
	return nil
}

// collisionMesh transforms the triangles of src into model space and
// merges identical vertices.
func collisionMesh(src *scene.Mesh, world mgl32.Mat4) (model.CollisionMesh, error) {
	var cm model.CollisionMesh
	seen := map[mgl32.Vec3]int32{}
	for fi, face := range src.Faces {
		if len(face) != 3 {
			return cm, expectf("collision mesh %q: face %d has %d indices, want 3", src.Name, fi, len(face))
		}
		for _, ix := range face {
			if int(ix) >= len(src.Positions) {
				return cm, expectf("collision mesh %q: face %d index %d out of range", src.Name, fi, ix)
			}
			v := mgl32.TransformCoordinate(src.Positions[ix], world)
			id, ok := seen[v]
			if !ok {
				id = int32(len(cm.Vertices))
				seen[v] = id
				cm.Vertices = append(cm.Vertices, v)
			}
			cm.Indices = append(cm.Indices, id)
		}
	}
	return cm, nil
}
