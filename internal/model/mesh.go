package model

import (
	"encoding/binary"
	"fmt"
	"math"

	"mdlconv/internal/mathutil"

	"github.com/go-gl/mathgl/mgl32"
)

// Topology of the primitives in a mesh. Only triangle lists are produced.
type Topology int

const (
	TopologyTriangleList Topology = iota
)

func (t Topology) String() string {
	if t == TopologyTriangleList {
		return "triangle_list"
	}
	return fmt.Sprintf("Topology(%d)", int(t))
}

// IndexFormat of a mesh's index buffer. IndexNone means the mesh is drawn
// without indices and NumElements equals NumVertices.
type IndexFormat int

const (
	IndexNone IndexFormat = iota
	IndexUint32
)

func (f IndexFormat) String() string {
	switch f {
	case IndexNone:
		return "none"
	case IndexUint32:
		return "uint32"
	}
	return fmt.Sprintf("IndexFormat(%d)", int(f))
}

// Size returns the size of one index in bytes.
func (f IndexFormat) Size() int {
	if f == IndexUint32 {
		return 4
	}
	return 0
}

// ChannelOffsets holds the byte offset of every semantic inside a vertex,
// -1 when the mesh lacks it.
type ChannelOffsets struct {
	Position    int
	Color       int
	Normal      int
	Tangent     int
	Binormal    int
	UV          int
	BoneIDs     int
	BoneWeights int
}

// OffsetsOf reads the offsets out of a normalized declaration.
func OffsetsOf(decl VertexDecl) ChannelOffsets {
	return ChannelOffsets{
		Position:    decl.Offset(SemanticPosition),
		Color:       decl.Offset(SemanticColor),
		Normal:      decl.Offset(SemanticNormal),
		Tangent:     decl.Offset(SemanticTangent),
		Binormal:    decl.Offset(SemanticBinormal),
		UV:          decl.Offset(SemanticUV),
		BoneIDs:     decl.Offset(SemanticBoneIDs),
		BoneWeights: decl.Offset(SemanticBoneWeights),
	}
}

// Bone binds a mesh to a model node. OffsetMatrix is the inverse bind
// matrix in column-major order.
type Bone struct {
	OffsetMatrix mgl32.Mat4
	NodeIndex    int
}

// Mesh is an interleaved GPU-ready vertex buffer plus optional indices.
type Mesh struct {
	Name        string
	Topology    Topology
	VBOffset    int // byte offset of the first vertex in VertexData
	IBOffset    int
	IndexFormat IndexFormat
	NumElements int
	NumVertices int
	Decl        VertexDecl
	Stride      int
	Offsets     ChannelOffsets
	VertexData  []byte
	IndexData   []byte
	AABB        mathutil.Box3
	Bones       []Bone
}

// HasSkinning reports whether the vertex layout carries bone attributes.
func (m *Mesh) HasSkinning() bool {
	return m.Offsets.BoneIDs >= 0 && m.Offsets.BoneWeights >= 0
}

func (m *Mesh) readF32(vertex, offset, comp int) float32 {
	p := m.VBOffset + vertex*m.Stride + offset + comp*4
	return math.Float32frombits(binary.LittleEndian.Uint32(m.VertexData[p:]))
}

// Position returns the position of vertex i.
func (m *Mesh) Position(i int) mgl32.Vec3 {
	o := m.Offsets.Position
	return mgl32.Vec3{m.readF32(i, o, 0), m.readF32(i, o, 1), m.readF32(i, o, 2)}
}

// Skin returns the four bone slots and weights of vertex i.
func (m *Mesh) Skin(i int) (ids [4]int32, weights [4]float32) {
	if !m.HasSkinning() {
		return ids, weights
	}
	for k := 0; k < 4; k++ {
		p := m.VBOffset + i*m.Stride + m.Offsets.BoneIDs + k*4
		ids[k] = int32(binary.LittleEndian.Uint32(m.VertexData[p:]))
		weights[k] = m.readF32(i, m.Offsets.BoneWeights, k)
	}
	return ids, weights
}

// Index returns element i of the index buffer, or i itself when the mesh
// is not indexed.
func (m *Mesh) Index(i int) uint32 {
	if m.IndexFormat == IndexNone {
		return uint32(i)
	}
	return binary.LittleEndian.Uint32(m.IndexData[m.IBOffset+i*4:])
}

// Validate checks the buffer sizes against the declared counts.
func (m *Mesh) Validate() error {
	if m.Stride != m.Decl.Stride(0) {
		return fmt.Errorf("model: mesh %q stride %d, declaration says %d", m.Name, m.Stride, m.Decl.Stride(0))
	}
	if got, want := len(m.VertexData)-m.VBOffset, m.NumVertices*m.Stride; got != want {
		return fmt.Errorf("model: mesh %q has %d vertex bytes, want %d", m.Name, got, want)
	}
	switch m.IndexFormat {
	case IndexNone:
		if m.NumElements != m.NumVertices {
			return fmt.Errorf("model: unindexed mesh %q draws %d elements of %d vertices", m.Name, m.NumElements, m.NumVertices)
		}
	default:
		if got, want := len(m.IndexData)-m.IBOffset, m.NumElements*m.IndexFormat.Size(); got != want {
			return fmt.Errorf("model: mesh %q has %d index bytes, want %d", m.Name, got, want)
		}
	}
	return nil
}
