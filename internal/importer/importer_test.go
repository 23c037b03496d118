package importer

import (
	"testing"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleTriangle(t *testing.T) {
	b := scene.NewBuilder("root")
	child := b.AddNode(b.Root(), "child", mgl32.Translate3D(0, 1, 0))
	b.Attach(child, b.AddMesh(triangle("tri", 0)))
	b.AddMaterial(material("stone"))

	add := NewAdditionalResult()
	m, err := quiet(DefaultSettings()).Parse(add, "rock", b.Scene(), NoEnforcedRoot)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Len(t, m.Nodes, 2)
	require.Len(t, m.Meshes, 1)
	assert.Len(t, m.Materials, 1)
	assert.Empty(t, m.Animations)
	assert.True(t, m.Collision.Empty())

	mesh := m.Meshes[0]
	assert.Equal(t, 20, mesh.Stride)
	assert.Equal(t, model.IndexNone, mesh.IndexFormat)
	assert.Empty(t, mesh.IndexData)
	assert.Equal(t, 3, mesh.NumElements)
	assert.Equal(t, 3, mesh.NumVertices)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, mesh.AABB.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 0}, mesh.AABB.Max)
	assert.Equal(t, model.ChannelOffsets{
		Position: 0, Color: -1, Normal: -1, Tangent: -1, Binormal: -1, UV: 12, BoneIDs: -1, BoneWeights: -1,
	}, mesh.Offsets)
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, mesh.Position(2))
	assert.Equal(t, float32(1), f32(mesh.VertexData, 2*20+12+4))

	root := m.Nodes[m.RootNode]
	assert.Equal(t, "root", root.Name)
	require.Len(t, root.Children, 1)
	c := m.Nodes[root.Children[0]]
	assert.Equal(t, []model.MeshAttachment{{MeshIndex: 0, MaterialIndex: 0}}, c.MeshAttachments)
	assert.True(t, c.LocalTransform.Position.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-6))

	assert.Equal(t, "rock_stone.mtl", m.Materials[0].AssetName)
	assert.Equal(t, []string{"rock_stone.mtl"}, add.MaterialAssets())
}

func TestDiscoveryDedupAndDeterminism(t *testing.T) {
	build := func() scene.Source {
		b := scene.NewBuilder("root")
		shared := b.AddMesh(triangle("shared", 1))
		other := b.AddMesh(triangle("other", 1))
		unused := b.AddMesh(triangle("unused", 0))
		_ = unused
		b.AddMaterial(material("never"))
		b.AddMaterial(material("used"))

		a := b.AddNode(b.Root(), "a", mgl32.Ident4())
		b.Attach(a, shared)
		c := b.AddNode(a, "c", mgl32.Ident4())
		b.Attach(c, other)
		b.Attach(c, shared)
		d := b.AddNode(b.Root(), "d", mgl32.Ident4())
		b.Attach(d, shared)
		return b.Scene()
	}

	first, err := quiet(DefaultSettings()).Parse(nil, "p", build(), NoEnforcedRoot)
	require.NoError(t, err)
	second, err := quiet(DefaultSettings()).Parse(nil, "p", build(), NoEnforcedRoot)
	require.NoError(t, err)

	require.Len(t, first.Meshes, 2)
	require.Len(t, first.Materials, 1)
	assert.Equal(t, "shared", first.Meshes[0].Name)
	assert.Equal(t, "other", first.Meshes[1].Name)
	assert.Equal(t, "used", first.Materials[0].Name)

	names := func(m *model.Model) []string {
		var out []string
		for _, n := range m.Nodes {
			out = append(out, n.Name)
		}
		return out
	}
	assert.Equal(t, []string{"root", "a", "c", "d"}, names(first))
	assert.Equal(t, names(first), names(second))

	a, c, d := first.Nodes[1], first.Nodes[2], first.Nodes[3]
	assert.Equal(t, 0, a.MeshAttachments[0].MeshIndex)
	assert.Equal(t, []model.MeshAttachment{{MeshIndex: 1, MaterialIndex: 0}, {MeshIndex: 0, MaterialIndex: 0}}, c.MeshAttachments)
	assert.Equal(t, 0, d.MeshAttachments[0].MeshIndex)
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i].MeshAttachments, second.Nodes[i].MeshAttachments)
		assert.Equal(t, first.Nodes[i].Children, second.Nodes[i].Children)
	}
}

func TestParseFailsOnQuad(t *testing.T) {
	b := scene.NewBuilder("root")
	mesh := triangle("quad", 0)
	mesh.Positions = append(mesh.Positions, mgl32.Vec3{1, 1, 0})
	mesh.UVs = append(mesh.UVs, mgl32.Vec3{1, 1, 0})
	mesh.Faces = [][]uint32{{0, 1, 3, 2}}
	b.Attach(b.Root(), b.AddMesh(mesh))
	b.AddMaterial(material("m"))

	add := NewAdditionalResult()
	m, err := quiet(DefaultSettings()).Parse(add, "p", b.Scene(), NoEnforcedRoot)
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpectation))
	assert.Empty(t, add.MtlsToCreate)
}

func TestParseRejectsBadReferences(t *testing.T) {
	cases := []struct {
		name  string
		build func(b *scene.Builder)
	}{
		{"mesh index", func(b *scene.Builder) {
			b.Attach(b.Root(), 7)
		}},
		{"material index", func(b *scene.Builder) {
			b.Attach(b.Root(), b.AddMesh(triangle("t", 3)))
		}},
		{"face index", func(b *scene.Builder) {
			m := triangle("t", 0)
			m.Faces = [][]uint32{{0, 1, 9}}
			b.Attach(b.Root(), b.AddMesh(m))
			b.AddMaterial(material("m"))
		}},
		{"channel length", func(b *scene.Builder) {
			m := triangle("t", 0)
			m.Normals = []mgl32.Vec3{{0, 0, 1}}
			b.Attach(b.Root(), b.AddMesh(m))
			b.AddMaterial(material("m"))
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := scene.NewBuilder("root")
			c.build(b)
			_, err := Parse(nil, "p", b.Scene(), NoEnforcedRoot, DefaultSettings())
			assert.True(t, errors.Is(err, ErrExpectation), "%v", err)
		})
	}
}

func TestImportAsMultiple(t *testing.T) {
	b := scene.NewBuilder("root")
	b.AddMaterial(material("bark"))
	tri := b.AddMesh(triangle("trunk", 0))

	oak := b.AddNode(b.Root(), "Oak", mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2)))
	b.Attach(oak, tri)
	box := b.AddNode(oak, "SCBox_oak", mgl32.Ident4())
	b.Attach(box, tri)

	pine := b.AddNode(b.Root(), "Pine/1", mgl32.Translate3D(-5, 0, 0))
	b.Attach(pine, tri)

	bad := triangle("broken", 0)
	bad.Faces = [][]uint32{{0, 1}}
	broken := b.AddNode(b.Root(), "Broken", mgl32.Ident4())
	b.Attach(broken, b.AddMesh(bad))

	add := NewAdditionalResult()
	parts, err := quiet(DefaultSettings()).ImportAsMultiple(add, "forest", b.Scene(), "/assets/trees.fbx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpectation))
	require.Len(t, parts, 2)

	assert.Equal(t, "trees.Oak.mdl", parts[0].FileName)
	assert.Equal(t, "trees.Pine_1.mdl", parts[1].FileName)

	oakModel := parts[0].Model
	root := oakModel.Nodes[oakModel.RootNode]
	assert.Equal(t, "Oak", root.Name)
	assert.Equal(t, mgl32.Vec3{}, root.LocalTransform.Position)
	assert.True(t, root.LocalTransform.Scale.ApproxEqualThreshold(mgl32.Vec3{2, 2, 2}, 1e-5))

	require.Len(t, oakModel.Collision.Boxes, 1)
	boxShape := oakModel.Collision.Boxes[0]
	assert.True(t, boxShape.HalfDiagonal.ApproxEqualThreshold(mgl32.Vec3{0.5, 1, 0}, 1e-6))
	// The box center (0.5, 1, 0) scaled by the root, with the root translation removed.
	assert.True(t, boxShape.Transform.Position.ApproxEqualThreshold(mgl32.Vec3{1, 2, 0}, 1e-5), "%v", boxShape.Transform.Position)

	assert.Equal(t, []string{"forest_bark.mtl"}, add.MaterialAssets())
}
