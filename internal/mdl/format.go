// Package mdl reads and writes the engine's binary model files.
//
// Layout (little endian):
//
//	magic    "SGEM"
//	version  uint32
//	hdrLen   uint32
//	header   JSON, hdrLen bytes
//	chunks   raw data, each starting on a 16-byte boundary
//
// Chunk offsets in the header are relative to the first chunk.
package mdl

import (
	"mdlconv/internal/model"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	Magic   = "SGEM"
	Version = 1

	chunkAlign = 16
	// maxHeader rejects corrupt length fields before allocating.
	maxHeader = 64 << 20
)

type chunkRef struct {
	Offset int64 `json:"offset"`
	Size   int64 `json:"size"`
}

type header struct {
	ID         string          `json:"id"`
	Root       int             `json:"root"`
	Nodes      []nodeJSON      `json:"nodes"`
	Meshes     []meshJSON      `json:"meshes"`
	Materials  []materialJSON  `json:"materials"`
	Animations []animationJSON `json:"animations,omitempty"`
	Collision  *collisionJSON  `json:"collision,omitempty"`
	Chunks     []chunkRef      `json:"chunks"`
}

type transformJSON struct {
	T [3]float32 `json:"t"`
	R [4]float32 `json:"r"` // x, y, z, w
	S [3]float32 `json:"s"`
}

func toTransformJSON(t model.Transform) transformJSON {
	return transformJSON{
		T: t.Position,
		R: [4]float32{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W},
		S: t.Scale,
	}
}

func (t transformJSON) transform() model.Transform {
	return model.Transform{
		Position: t.T,
		Rotation: mgl32.Quat{W: t.R[3], V: mgl32.Vec3{t.R[0], t.R[1], t.R[2]}},
		Scale:    t.S,
	}
}

type attachmentJSON struct {
	Mesh     int `json:"mesh"`
	Material int `json:"material"`
}

type nodeJSON struct {
	Name      string           `json:"name"`
	Transform transformJSON    `json:"transform"`
	Children  []int            `json:"children,omitempty"`
	Meshes    []attachmentJSON `json:"meshes,omitempty"`
}

type attribJSON struct {
	Slot     int    `json:"slot"`
	Semantic string `json:"semantic"`
	Format   string `json:"format"`
	Offset   int    `json:"offset"`
}

type boxJSON struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

type boneJSON struct {
	Node   int         `json:"node"`
	Offset [16]float32 `json:"offset"` // row-major
}

type meshJSON struct {
	Name        string       `json:"name"`
	Topology    string       `json:"topology"`
	IndexFormat string       `json:"indexFormat"`
	NumElements int          `json:"numElements"`
	NumVertices int          `json:"numVertices"`
	Stride      int          `json:"stride"`
	Decl        []attribJSON `json:"decl"`
	// AABB is omitted for meshes without vertices.
	AABB     *boxJSON   `json:"aabb,omitempty"`
	Bones    []boneJSON `json:"bones,omitempty"`
	Vertices int        `json:"vertices"`
	// Indices is -1 when the index buffer is elided.
	Indices int `json:"indices"`
}

type materialJSON struct {
	Name  string `json:"name"`
	Asset string `json:"asset"`
}

// Keys are packed as float32 tuples: (t, x, y, z) for positions and
// scalings, (t, x, y, z, w) for rotations. -1 marks an absent track.
type trackJSON struct {
	Node      int `json:"node"`
	Positions int `json:"positions"`
	Rotations int `json:"rotations"`
	Scalings  int `json:"scalings"`
}

type animationJSON struct {
	Name     string      `json:"name"`
	Duration float32     `json:"duration"`
	Tracks   []trackJSON `json:"tracks"`
}

type collisionMeshJSON struct {
	Vertices int `json:"vertices"` // chunk of float32 x, y, z
	Indices  int `json:"indices"`  // chunk of int32
}

type boxShapeJSON struct {
	Transform    transformJSON `json:"transform"`
	HalfDiagonal [3]float32    `json:"halfDiagonal"`
}

type capsuleJSON struct {
	Transform  transformJSON `json:"transform"`
	HalfHeight float32       `json:"halfHeight"`
	Radius     float32       `json:"radius"`
}

type sphereJSON struct {
	Transform transformJSON `json:"transform"`
	Radius    float32       `json:"radius"`
}

type collisionJSON struct {
	Convex    []collisionMeshJSON `json:"convex,omitempty"`
	Concave   []collisionMeshJSON `json:"concave,omitempty"`
	Boxes     []boxShapeJSON      `json:"boxes,omitempty"`
	Capsules  []capsuleJSON       `json:"capsules,omitempty"`
	Cylinders []boxShapeJSON      `json:"cylinders,omitempty"`
	Spheres   []sphereJSON        `json:"spheres,omitempty"`
}
