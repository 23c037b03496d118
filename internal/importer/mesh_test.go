package importer

import (
	"sort"
	"testing"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullMesh(numVerts int) *scene.Mesh {
	m := &scene.Mesh{Name: "full"}
	for i := 0; i < numVerts; i++ {
		f := float32(i)
		m.Positions = append(m.Positions, mgl32.Vec3{f, f + 0.5, -f})
		m.Colors = append(m.Colors, mgl32.Vec4{1, 0, 0, 1})
		m.Normals = append(m.Normals, mgl32.Vec3{0, 1, 0})
		m.Tangents = append(m.Tangents, mgl32.Vec3{1, 0, 0})
		m.Bitangents = append(m.Bitangents, mgl32.Vec3{0, 0, 1})
		m.UVs = append(m.UVs, mgl32.Vec3{f / 10, 1 - f/10, 99})
	}
	for i := 0; i+2 < numVerts; i += 3 {
		m.Faces = append(m.Faces, []uint32{uint32(i), uint32(i + 1), uint32(i + 2)})
	}
	return m
}

func importOne(t *testing.T, mesh *scene.Mesh, bones ...string) *model.Model {
	t.Helper()
	b := scene.NewBuilder("root")
	for _, name := range bones {
		b.AddNode(b.Root(), name, mgl32.Ident4())
	}
	b.Attach(b.Root(), b.AddMesh(mesh))
	b.AddMaterial(material("m"))
	m, err := quiet(DefaultSettings()).Parse(nil, "p", b.Scene(), NoEnforcedRoot)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	return m
}

func TestVertexLayoutAllChannels(t *testing.T) {
	src := fullMesh(6)
	src.Bones = []scene.Bone{{Name: "b0", Node: 1, Offset: mgl32.Ident4(), Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}}}}
	mesh := importOne(t, src, "b0").Meshes[0]

	// position 12, color 16, normal 12, tangent 12, binormal 12, uv 8, ids 16, weights 16
	assert.Equal(t, 104, mesh.Stride)
	assert.Equal(t, model.ChannelOffsets{
		Position: 0, Color: 12, Normal: 28, Tangent: 40, Binormal: 52, UV: 64, BoneIDs: 72, BoneWeights: 88,
	}, mesh.Offsets)
	assert.Len(t, mesh.VertexData, mesh.NumVertices*mesh.Stride)

	type span struct{ start, end int }
	var spans []span
	for _, a := range mesh.Decl {
		assert.Equal(t, 0, a.BufferSlot)
		require.GreaterOrEqual(t, a.ByteOffset, 0)
		require.LessOrEqual(t, a.ByteOffset+a.Format.Size(), mesh.Stride)
		spans = append(spans, span{a.ByteOffset, a.ByteOffset + a.Format.Size()})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i-1].end, spans[i].start)
	}

	v := 4
	base := v * mesh.Stride
	assert.Equal(t, mgl32.Vec3{4, 4.5, -4}, mesh.Position(v))
	assert.Equal(t, float32(1), f32(mesh.VertexData, base+mesh.Offsets.Color))
	assert.Equal(t, float32(1), f32(mesh.VertexData, base+mesh.Offsets.Normal+4))
	assert.InDelta(t, 0.4, f32(mesh.VertexData, base+mesh.Offsets.UV), 1e-6)
	assert.InDelta(t, 0.6, f32(mesh.VertexData, base+mesh.Offsets.UV+4), 1e-6)
}

func TestTangentsNeedBitangents(t *testing.T) {
	src := triangle("t", 0)
	src.Tangents = []mgl32.Vec3{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}}
	mesh := importOne(t, src).Meshes[0]
	assert.Equal(t, -1, mesh.Offsets.Tangent)
	assert.Equal(t, -1, mesh.Offsets.Binormal)
	assert.Equal(t, 20, mesh.Stride)
}

func TestIndexBufferElision(t *testing.T) {
	seq := fullMesh(9)
	mesh := importOne(t, seq).Meshes[0]
	assert.Equal(t, model.IndexNone, mesh.IndexFormat)
	assert.Empty(t, mesh.IndexData)
	assert.Equal(t, mesh.NumVertices, mesh.NumElements)

	shuffled := fullMesh(9)
	shuffled.Faces[1] = []uint32{3, 5, 4}
	mesh = importOne(t, shuffled).Meshes[0]
	assert.Equal(t, model.IndexUint32, mesh.IndexFormat)
	assert.Equal(t, 9, mesh.NumElements)
	assert.Len(t, mesh.IndexData, 9*4)
	assert.Equal(t, uint32(5), mesh.Index(4))

	reused := fullMesh(6)
	reused.Faces = [][]uint32{{0, 1, 2}, {3, 4, 5}, {0, 2, 3}}
	mesh = importOne(t, reused).Meshes[0]
	assert.Equal(t, model.IndexUint32, mesh.IndexFormat)
	assert.Equal(t, 9, mesh.NumElements)

	unused := fullMesh(5)
	mesh = importOne(t, unused).Meshes[0]
	assert.Equal(t, model.IndexUint32, mesh.IndexFormat, "trailing vertices keep the index buffer")
	assert.Equal(t, 3, mesh.NumElements)
}

func TestSkinWeightReduction(t *testing.T) {
	src := fullMesh(3)
	names := []string{"b0", "b1", "b2", "b3", "b4", "b5"}
	weights := []float32{0.05, 0.3, 0.1, 0.25, 0.2, 0.1}
	for i, name := range names {
		src.Bones = append(src.Bones, scene.Bone{
			Name:    name,
			Node:    i + 1,
			Offset:  mgl32.Translate3D(float32(i), 0, 0).Transpose(),
			Weights: []scene.VertexWeight{{Vertex: 0, Weight: weights[i]}},
		})
	}
	src.Bones[0].Weights = append(src.Bones[0].Weights, scene.VertexWeight{Vertex: 1, Weight: 0.5})

	m := importOne(t, src, names...)
	mesh := m.Meshes[0]
	require.True(t, mesh.HasSkinning())
	require.Len(t, mesh.Bones, 6)
	assert.Equal(t, 2, mesh.Bones[1].NodeIndex)
	assert.Equal(t, mgl32.Translate3D(1, 0, 0), mesh.Bones[1].OffsetMatrix)

	ids, w := mesh.Skin(0)
	assert.Equal(t, [4]int32{1, 3, 4, 2}, ids)
	var sum float32
	for _, x := range w {
		sum += x
	}
	assert.InDelta(t, 1, sum, 1e-5)
	assert.InDelta(t, 0.3/0.85, w[0], 1e-5)

	ids, w = mesh.Skin(1)
	assert.Equal(t, [4]int32{0, 0, 0, 0}, ids)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, w)

	ids, w = mesh.Skin(2)
	assert.Equal(t, [4]int32{}, ids)
	assert.Equal(t, [4]float32{}, w)
}

func TestSkinZeroWeightsStayZero(t *testing.T) {
	src := fullMesh(3)
	src.Bones = []scene.Bone{{Name: "b", Node: 1, Offset: mgl32.Ident4(), Weights: []scene.VertexWeight{{Vertex: 1, Weight: 0}}}}
	mesh := importOne(t, src, "b").Meshes[0]
	require.True(t, mesh.HasSkinning())
	_, w := mesh.Skin(1)
	assert.Equal(t, [4]float32{}, w)
}

func TestBoneResolvedByName(t *testing.T) {
	src := fullMesh(3)
	src.Bones = []scene.Bone{{Name: "hip", Node: -1, Offset: mgl32.Ident4(), Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}}}}
	mesh := importOne(t, src, "spine", "hip").Meshes[0]
	assert.Equal(t, 2, mesh.Bones[0].NodeIndex)
}

func TestUnresolvedBoneFails(t *testing.T) {
	src := fullMesh(3)
	src.Bones = []scene.Bone{{Name: "ghost", Node: -1, Offset: mgl32.Ident4(), Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}}}}
	b := scene.NewBuilder("root")
	b.Attach(b.Root(), b.AddMesh(src))
	b.AddMaterial(material("m"))

	_, err := quiet(DefaultSettings()).Parse(nil, "p", b.Scene(), NoEnforcedRoot)
	assert.True(t, errors.Is(err, ErrExpectation))
}

func TestSkinningSkippedForSubTree(t *testing.T) {
	src := fullMesh(3)
	src.Bones = []scene.Bone{{Name: "ghost", Node: -1, Offset: mgl32.Ident4(), Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}}}}
	b := scene.NewBuilder("root")
	part := b.AddNode(b.Root(), "part", mgl32.Ident4())
	b.Attach(part, b.AddMesh(src))
	b.AddMaterial(material("m"))

	m, err := quiet(DefaultSettings()).Parse(nil, "p", b.Scene(), part)
	require.NoError(t, err)
	assert.False(t, m.Meshes[0].HasSkinning())
	assert.Empty(t, m.Meshes[0].Bones)
}

func TestReduceInfluences(t *testing.T) {
	in := []influence{{0, 2}, {1, 2}}
	out := reduceInfluences(in)
	assert.Equal(t, []influence{{0, 0.5}, {1, 0.5}}, out)

	tiny := reduceInfluences([]influence{{0, 1e-8}})
	assert.Equal(t, float32(1e-8), tiny[0].weight)
}
