// Package scene describes a loaded source scene graph in a form the importer
// can walk without knowing which file format produced it.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Source is a read-only view over a parsed scene graph.
// Every index is a stable position in an adapter-owned flat array.
// Source graphs are trees: every node has at most one parent and no node
// is its own ancestor. Adapters reject documents that break this.
type Source interface {
	Root() int
	NumNodes() int
	Node(i int) *Node
	NumMeshes() int
	Mesh(i int) (*Mesh, error)
	NumMaterials() int
	Material(i int) *Material
	NumAnimations() int
	Animation(i int) (*Animation, error)
	EmbeddedTexture(ref string) (*EmbeddedTexture, bool)
}

// Node is one element of the source hierarchy.
type Node struct {
	Name      string
	Transform mgl32.Mat4 // local, column-major
	Meshes    []int
	Children  []int
}

// VertexWeight is a single bone influence on one vertex.
type VertexWeight struct {
	Vertex uint32
	Weight float32
}

// Bone references the node that drives it. Offset is row-major as the
// source lays it out; consumers transpose it.
type Bone struct {
	Name    string
	Node    int // source node index, -1 when the adapter could not resolve it
	Offset  mgl32.Mat4
	Weights []VertexWeight
}

// Mesh is a polygon soup with per-vertex channels. Every channel that is
// present has exactly len(Positions) elements.
type Mesh struct {
	Name          string
	MaterialIndex int
	Positions     []mgl32.Vec3
	Colors        []mgl32.Vec4
	Normals       []mgl32.Vec3
	Tangents      []mgl32.Vec3
	Bitangents    []mgl32.Vec3
	UVs           []mgl32.Vec3
	Faces         [][]uint32
	Bones         []Bone
}

// HasTangentsAndBitangents reports whether both tangent frames are present.
func (m *Mesh) HasTangentsAndBitangents() bool {
	return len(m.Tangents) > 0 && len(m.Bitangents) > 0
}

// VectorKey is a timed position or scale sample.
type VectorKey struct {
	Time  float64
	Value mgl32.Vec3
}

// QuatKey is a timed rotation sample.
type QuatKey struct {
	Time  float64
	Value mgl32.Quat
}

// Channel animates the node named NodeName.
type Channel struct {
	NodeName     string
	PositionKeys []VectorKey
	RotationKeys []QuatKey
	ScalingKeys  []VectorKey
}

// Animation key times and Duration are in ticks.
type Animation struct {
	Name           string
	Duration       float64
	TicksPerSecond float64
	Channels       []Channel
}

// EmbeddedTexture is image data stored inside the source file.
type EmbeddedTexture struct {
	Filename   string
	FormatHint string // file extension without the dot, e.g. "png"
	Data       []byte
}
