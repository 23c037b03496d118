// Package model holds an imported 3D model ready to be serialized for the
// engine: a node tree, interleaved meshes, material references, animations
// and collision shapes.
package model

import (
	"fmt"

	"mdlconv/internal/mathutil"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Transform is a decomposed local transform.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// TransformFromMat4 decomposes a column-major affine matrix.
func TransformFromMat4(m mgl32.Mat4) Transform {
	t, r, s := mathutil.Decompose(m)
	return Transform{Position: t, Rotation: r, Scale: s}
}

// Mat4 recomposes the transform as T * R * S.
func (t Transform) Mat4() mgl32.Mat4 {
	return mathutil.Compose(t.Position, t.Rotation, t.Scale)
}

// MeshAttachment draws mesh MeshIndex with material MaterialIndex.
type MeshAttachment struct {
	MeshIndex     int
	MaterialIndex int
}

type Node struct {
	Name            string
	LocalTransform  Transform
	Children        []int
	MeshAttachments []MeshAttachment
}

// Model is the import result. Slices are indexed by the integers used in
// Node.Children, MeshAttachment and Bone.NodeIndex.
type Model struct {
	RootNode   int
	Nodes      []*Node
	Meshes     []*Mesh
	Materials  []*Material
	Animations []*Animation
	Collision  Collision
}

func New() *Model {
	return &Model{RootNode: -1}
}

// MakeNode appends a node with an identity transform and returns its index.
func (m *Model) MakeNode(name string) int {
	m.Nodes = append(m.Nodes, &Node{Name: name, LocalTransform: IdentityTransform()})
	return len(m.Nodes) - 1
}

func (m *Model) MakeMesh() int {
	m.Meshes = append(m.Meshes, &Mesh{})
	return len(m.Meshes) - 1
}

func (m *Model) MakeMaterial() int {
	m.Materials = append(m.Materials, &Material{PBR: DefaultPBRSettings()})
	return len(m.Materials) - 1
}

// FindFirstNodeByName returns the lowest node index named name, or -1.
func (m *Model) FindFirstNodeByName(name string) int {
	for i, n := range m.Nodes {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants: a single root reaching every
// node exactly once, and in-range mesh, material and bone references.
func (m *Model) Validate() error {
	if len(m.Nodes) == 0 {
		if m.RootNode != -1 {
			return fmt.Errorf("model: root %d without nodes", m.RootNode)
		}
		return nil
	}
	if m.RootNode < 0 || m.RootNode >= len(m.Nodes) {
		return fmt.Errorf("model: root node %d out of range", m.RootNode)
	}

	seen := make([]bool, len(m.Nodes))
	stack := []int{m.RootNode}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			return fmt.Errorf("model: node %d reachable twice", n)
		}
		seen[n] = true
		for _, c := range m.Nodes[n].Children {
			if c < 0 || c >= len(m.Nodes) {
				return fmt.Errorf("model: node %d has child %d out of range", n, c)
			}
			stack = append(stack, c)
		}
		for _, a := range m.Nodes[n].MeshAttachments {
			if a.MeshIndex < 0 || a.MeshIndex >= len(m.Meshes) {
				return fmt.Errorf("model: node %d attaches mesh %d out of range", n, a.MeshIndex)
			}
			if a.MaterialIndex < 0 || a.MaterialIndex >= len(m.Materials) {
				return fmt.Errorf("model: node %d attaches material %d out of range", n, a.MaterialIndex)
			}
		}
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("model: node %d (%s) unreachable from root", i, m.Nodes[i].Name)
		}
	}

	for _, mesh := range m.Meshes {
		if err := mesh.Validate(); err != nil {
			return err
		}
		for _, b := range mesh.Bones {
			if b.NodeIndex < 0 || b.NodeIndex >= len(m.Nodes) {
				return fmt.Errorf("model: mesh %q bone node %d out of range", mesh.Name, b.NodeIndex)
			}
		}
	}
	for _, a := range m.Animations {
		for n := range a.PerNode {
			if n < 0 || n >= len(m.Nodes) {
				return fmt.Errorf("model: animation %q targets node %d out of range", a.Name, n)
			}
		}
	}
	return nil
}

// assetNamespace scopes the ids of generated assets.
var assetNamespace = uuid.MustParse("8f3a5b1e-2c4d-4e6f-9a0b-1c2d3e4f5a6b")

// AssetID derives a stable id from an asset name, so re-running an import
// keeps references valid.
func AssetID(name string) uuid.UUID {
	return uuid.NewSHA1(assetNamespace, []byte(name))
}
