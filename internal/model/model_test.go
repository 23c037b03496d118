package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDecl(t *testing.T) {
	decl := VertexDecl{
		{Semantic: SemanticPosition, Format: FormatFloat3, ByteOffset: -1},
		{Semantic: SemanticColor, Format: FormatFloat4, ByteOffset: -1},
		{Semantic: SemanticUV, Format: FormatFloat2, ByteOffset: -1},
		{BufferSlot: 1, Semantic: SemanticNormal, Format: FormatFloat3, ByteOffset: -1},
	}.Normalize()

	assert.Equal(t, 0, decl[0].ByteOffset)
	assert.Equal(t, 12, decl[1].ByteOffset)
	assert.Equal(t, 28, decl[2].ByteOffset)
	assert.Equal(t, 0, decl[3].ByteOffset)
	assert.Equal(t, 36, decl.Stride(0))
	assert.Equal(t, 12, decl.Stride(1))
	assert.Equal(t, 28, decl.Offset(SemanticUV))
	assert.Equal(t, -1, decl.Offset(SemanticTangent))
}

func TestNormalizeDeclKeepsExplicitOffsets(t *testing.T) {
	decl := VertexDecl{
		{Semantic: SemanticPosition, Format: FormatFloat3, ByteOffset: 4},
		{Semantic: SemanticNormal, Format: FormatFloat3, ByteOffset: -1},
	}.Normalize()
	assert.Equal(t, 4, decl[0].ByteOffset)
	assert.Equal(t, 16, decl[1].ByteOffset)
	assert.Equal(t, 28, decl.Stride(0))
}

func TestSemanticAndFormatNames(t *testing.T) {
	for s := SemanticPosition; s <= SemanticBoneWeights; s++ {
		got, err := ParseSemantic(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for f := FormatFloat2; f <= FormatInt4; f++ {
		got, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	assert.Equal(t, "a_bonesIds", SemanticBoneIDs.String())
	_, err := ParseSemantic("a_nope")
	assert.Error(t, err)
}

func TestKeyFramesStaySorted(t *testing.T) {
	var k KeyFrames
	assert.False(t, k.HasAnyKeys())

	assert.False(t, k.SetPosition(2, mgl32.Vec3{2, 0, 0}))
	assert.False(t, k.SetPosition(0, mgl32.Vec3{0, 0, 0}))
	assert.False(t, k.SetPosition(1, mgl32.Vec3{1, 0, 0}))
	assert.True(t, k.SetPosition(1, mgl32.Vec3{9, 0, 0}))

	require.Len(t, k.Positions, 3)
	assert.Equal(t, []float32{0, 1, 2}, []float32{k.Positions[0].Time, k.Positions[1].Time, k.Positions[2].Time})
	assert.Equal(t, mgl32.Vec3{9, 0, 0}, k.Positions[1].Value)

	assert.False(t, k.SetRotation(0.5, mgl32.QuatIdent()))
	assert.True(t, k.SetRotation(0.5, mgl32.QuatIdent()))
	assert.True(t, k.HasAnyKeys())
}

func TestValidateTree(t *testing.T) {
	m := New()
	root := m.MakeNode("root")
	child := m.MakeNode("child")
	m.RootNode = root
	m.Nodes[root].Children = []int{child}
	require.NoError(t, m.Validate())

	orphan := m.MakeNode("orphan")
	assert.ErrorContains(t, m.Validate(), "unreachable")

	m.Nodes[child].Children = []int{orphan}
	m.Nodes[root].Children = append(m.Nodes[root].Children, orphan)
	assert.ErrorContains(t, m.Validate(), "reachable twice")
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatRotate(0.3, mgl32.Vec3{0, 0, 1}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	back := TransformFromMat4(tr.Mat4())
	assert.True(t, back.Position.ApproxEqualThreshold(tr.Position, 1e-5))
	assert.True(t, back.Scale.ApproxEqualThreshold(tr.Scale, 1e-5))
	assert.True(t, back.Mat4().ApproxEqualThreshold(tr.Mat4(), 1e-5))
}

func TestAssetIDStable(t *testing.T) {
	a := AssetID("car_paint.mtl")
	assert.Equal(t, a, AssetID("car_paint.mtl"))
	assert.NotEqual(t, a, AssetID("car_glass.mtl"))
	assert.Equal(t, uuid.Version(5), a.Version())
}
