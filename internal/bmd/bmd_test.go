package bmd

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"testing"

	"mdlconv/internal/importer"
	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type encoder struct {
	bytes.Buffer
}

func (e *encoder) put(v any) {
	_ = binary.Write(&e.Buffer, binary.LittleEndian, v)
}

func (e *encoder) str(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	e.Write(b)
}

// encodeBody writes m in the unencrypted layout, without the file header.
func encodeBody(m *Model) []byte {
	var e encoder
	e.str(m.Name, 32)
	e.put(uint16(len(m.Meshes)))
	e.put(uint16(len(m.Bones)))
	e.put(uint16(len(m.Actions)))
	for _, mesh := range m.Meshes {
		e.put([5]int16{int16(len(mesh.Verts)), int16(len(mesh.Normals)), int16(len(mesh.UVs)), int16(len(mesh.Tris)), mesh.Texture})
		for i, v := range mesh.Verts {
			e.put([2]int16{mesh.Nodes[i], 0})
			e.put(v)
		}
		for _, n := range mesh.Normals {
			e.put([2]int16{n.Node, 0})
			e.put(n.Vector)
			e.put([2]int16{n.BindVertex, 0})
		}
		for _, uv := range mesh.UVs {
			e.put(uv)
		}
		for _, t := range mesh.Tris {
			var b [64]byte
			b[0] = byte(t.Polygon)
			for k := 0; k < 4; k++ {
				binary.LittleEndian.PutUint16(b[2+k*2:], uint16(t.VI[k]))
				binary.LittleEndian.PutUint16(b[10+k*2:], uint16(t.NI[k]))
				binary.LittleEndian.PutUint16(b[18+k*2:], uint16(t.TI[k]))
			}
			e.Write(b[:])
		}
		e.str(mesh.TexPath, 32)
	}
	for _, a := range m.Actions {
		e.put(int16(a.NumKeys))
		if a.LockPositions {
			e.WriteByte(1)
			e.put(a.Positions)
		} else {
			e.WriteByte(0)
		}
	}
	for _, b := range m.Bones {
		if b.IsDummy {
			e.WriteByte(1)
			continue
		}
		e.WriteByte(0)
		e.str(b.Name, 32)
		e.put(int16(b.Parent))
		for a, act := range m.Actions {
			if act.NumKeys == 0 {
				continue
			}
			e.put(b.Motions[a].Positions)
			e.put(b.Motions[a].Rotations)
		}
	}
	return e.Bytes()
}

func encryptXOR(data []byte, key [16]byte) []byte {
	out := make([]byte, len(data))
	chainKey := byte(0x5E)
	for i, p := range data {
		out[i] = (p + chainKey) ^ key[i&15]
		chainKey = out[i] + 0x3D
	}
	return out
}

func encryptLEA(data []byte, key [32]byte) []byte {
	rk := leaKeySchedule(key)
	out := make([]byte, len(data))
	for off := 0; off < len(data); off += 16 {
		s0 := binary.LittleEndian.Uint32(data[off:])
		s1 := binary.LittleEndian.Uint32(data[off+4:])
		s2 := binary.LittleEndian.Uint32(data[off+8:])
		s3 := binary.LittleEndian.Uint32(data[off+12:])
		for r := 0; r < 32; r++ {
			k := rk[r*6 : r*6+6]
			t0 := bits.RotateLeft32((s0^k[0])+(s1^k[1]), 9)
			t1 := bits.RotateLeft32((s1^k[2])+(s2^k[3]), -5)
			t2 := bits.RotateLeft32((s2^k[4])+(s3^k[5]), -3)
			s0, s1, s2, s3 = t0, t1, t2, s0
		}
		binary.LittleEndian.PutUint32(out[off:], s0)
		binary.LittleEndian.PutUint32(out[off+4:], s1)
		binary.LittleEndian.PutUint32(out[off+8:], s2)
		binary.LittleEndian.PutUint32(out[off+12:], s3)
	}
	return out
}

func file(version byte, body []byte) []byte {
	out := []byte{'B', 'M', 'D', version}
	if version == 12 || version == 15 {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	}
	return append(out, body...)
}

// sword is a two-bone model with one quad and one two-key action.
func sword() *Model {
	zero := []mgl32.Vec3{{}, {}}
	return &Model{
		Name: "sword",
		Meshes: []Mesh{{
			Verts:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 0}, {0, 1, 0}},
			Nodes:   []int16{0, 0, 1, 1},
			Normals: []Normal{{Node: 0, Vector: [3]float32{0, 0, 1}}},
			UVs:     [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
			Tris: []Triangle{{
				Polygon: 4,
				VI:      [4]int16{0, 1, 2, 3},
				TI:      [4]int16{0, 1, 2, 3},
			}},
			TexPath: "sword04.jpg",
		}},
		Actions: []Action{{NumKeys: 2}},
		Bones: []Bone{
			{Name: "Bip01", Parent: -1, Motions: []Motion{{
				Positions: []mgl32.Vec3{{0, 0, 1}, {0, 0, 2}},
				Rotations: zero,
			}}},
			{Name: "Blade", Parent: 0, Motions: []Motion{{
				Positions: []mgl32.Vec3{{1, 0, 0}, {1, 0, 0}},
				Rotations: zero,
			}}},
		},
	}
}

func TestDecodePlain(t *testing.T) {
	m, err := Decode(file(10, encodeBody(sword())), DefaultKeys())
	require.NoError(t, err)

	assert.Equal(t, "sword", m.Name)
	assert.Equal(t, byte(10), m.Version)
	require.Len(t, m.Meshes, 1)
	mesh := m.Meshes[0]
	assert.Equal(t, []int16{0, 0, 1, 1}, mesh.Nodes)
	assert.Equal(t, 4, mesh.Tris[0].Polygon)
	assert.Equal(t, "sword04.jpg", mesh.TexPath)
	require.Len(t, m.Bones, 2)
	assert.Equal(t, "Blade", m.Bones[1].Name)
	assert.Equal(t, 0, m.Bones[1].Parent)
	assert.Equal(t, mgl32.Vec3{0, 0, 2}, m.Bones[0].Motions[0].Positions[1])

	pos, _ := m.Bones[1].BindPose()
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, pos)
}

func TestDecodeLockPositionsAndDummies(t *testing.T) {
	src := sword()
	src.Actions = append(src.Actions, Action{NumKeys: 1, LockPositions: true, Positions: []mgl32.Vec3{{3, 4, 5}}}, Action{})
	for i := range src.Bones {
		src.Bones[i].Motions = append(src.Bones[i].Motions,
			Motion{Positions: []mgl32.Vec3{{}}, Rotations: []mgl32.Vec3{{0, 0, 1}}}, Motion{})
	}
	src.Bones = append(src.Bones, Bone{IsDummy: true, Parent: -1})

	m, err := Decode(file(10, encodeBody(src)), DefaultKeys())
	require.NoError(t, err)
	require.Len(t, m.Actions, 3)
	assert.True(t, m.Actions[1].LockPositions)
	assert.Equal(t, []mgl32.Vec3{{3, 4, 5}}, m.Actions[1].Positions)
	assert.Empty(t, m.Bones[0].Motions[2].Positions)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, m.Bones[1].Motions[1].Rotations[0])
	assert.True(t, m.Bones[2].IsDummy)
}

func TestDecodeXOR(t *testing.T) {
	body := encodeBody(sword())
	m, err := Decode(file(12, encryptXOR(body, DefaultXORKey)), DefaultKeys())
	require.NoError(t, err)
	assert.Equal(t, "sword", m.Name)
	assert.Equal(t, byte(12), m.Version)
}

func TestDecodeLEA(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i*7 + 1)
	}
	body := encodeBody(sword())
	if pad := len(body) % 16; pad != 0 {
		body = append(body, make([]byte, 16-pad)...)
	}
	raw := file(15, encryptLEA(body, key))

	_, err := Decode(raw, DefaultKeys())
	assert.ErrorContains(t, err, "LEA key")

	keys := DefaultKeys()
	keys.LEA = key
	m, err := Decode(raw, keys)
	require.NoError(t, err)
	assert.Equal(t, "sword", m.Name)
	require.Len(t, m.Meshes, 1)
	assert.Len(t, m.Meshes[0].Verts, 4)
}

func TestDecryptLEARejectsPartialBlocks(t *testing.T) {
	_, err := DecryptLEA(make([]byte, 17), [32]byte{1})
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	good := encodeBody(sword())

	badPoly := sword()
	badPoly.Meshes[0].Tris[0].Polygon = 5

	cases := map[string][]byte{
		"header":    []byte("XYZ\x0a"),
		"short":     []byte("BM"),
		"truncated": file(10, good[:len(good)-10]),
		"v12 size":  append([]byte{'B', 'M', 'D', 12}, 0xff, 0xff, 0, 0),
		"polygon":   file(10, encodeBody(badPoly)),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw, DefaultKeys())
			assert.Error(t, err)
		})
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(sword(), Options{})
	require.NoError(t, err)

	// root, two bones, mesh holder
	require.Equal(t, 4, src.NumNodes())
	root := src.Node(src.Root())
	assert.Equal(t, "sword", root.Name)
	assert.Equal(t, mgl32.Ident4(), root.Transform)
	assert.Equal(t, "Bip01", src.Node(1).Name)
	assert.Equal(t, []int{2}, src.Node(1).Children)
	assert.Equal(t, []int{0}, src.Node(3).Meshes)

	mesh, err := src.Mesh(0)
	require.NoError(t, err)
	assert.Equal(t, [][]uint32{{0, 1, 2}, {0, 2, 3}}, mesh.Faces)
	require.Len(t, mesh.Positions, 4)
	// Blade sits at (1,0,0) under Bip01 at (0,0,1)
	assert.True(t, mesh.Positions[2].ApproxEqualThreshold(mgl32.Vec3{1, 0, 1}, 1e-5))
	assert.True(t, mesh.Positions[3].ApproxEqualThreshold(mgl32.Vec3{1, 1, 1}, 1e-5))
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, mesh.UVs[2])
	assert.Len(t, mesh.Normals, 4)

	require.Len(t, mesh.Bones, 2)
	assert.Equal(t, "Blade", mesh.Bones[1].Name)
	assert.Equal(t, 2, mesh.Bones[1].Node)
	assert.Len(t, mesh.Bones[1].Weights, 2)
	assert.True(t, mesh.Bones[1].Offset.Transpose().ApproxEqualThreshold(mgl32.Translate3D(-1, 0, -1), 1e-5))

	mat := src.Material(mesh.MaterialIndex)
	assert.Equal(t, "sword04", mat.Name)
	ref, ok := mat.Texture(scene.TextureDiffuse)
	require.True(t, ok)
	assert.Equal(t, "sword04.jpg", ref)

	require.Equal(t, 1, src.NumAnimations())
	anim, err := src.Animation(0)
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultFPS), anim.TicksPerSecond)
	assert.Equal(t, 1.0, anim.Duration)
	require.Len(t, anim.Channels, 2)
	assert.Equal(t, "Bip01", anim.Channels[0].NodeName)
	assert.Equal(t, mgl32.Vec3{0, 0, 2}, anim.Channels[0].PositionKeys[1].Value)
}

func TestNewSourceOptions(t *testing.T) {
	m := sword()
	m.Bones[1].Name = "Bip01"
	m.Bones = append(m.Bones, Bone{IsDummy: true, Parent: -1})

	src, err := NewSource(m, Options{ZUp: true, FPS: 30})
	require.NoError(t, err)
	assert.NotEqual(t, mgl32.Ident4(), src.Node(src.Root()).Transform)
	assert.Equal(t, "Bip01_1", src.Node(2).Name)
	assert.Equal(t, "dummy_2", src.Node(3).Name)

	anim, err := src.Animation(0)
	require.NoError(t, err)
	assert.Equal(t, 30.0, anim.TicksPerSecond)
	assert.Equal(t, "Bip01_1", anim.Channels[1].NodeName)
}

func TestImportBMD(t *testing.T) {
	src, err := NewSource(sword(), Options{ZUp: true})
	require.NoError(t, err)

	m, err := importer.Parse(nil, "items", src, importer.NoEnforcedRoot, importer.DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	require.Len(t, m.Meshes, 1)
	assert.True(t, m.Meshes[0].HasSkinning())
	assert.Equal(t, 4, m.Meshes[0].NumVertices)
	assert.Equal(t, "items_sword04.mtl", m.Materials[0].AssetName)
	require.Len(t, m.Animations, 1)
	assert.Len(t, m.Animations[0].PerNode, 2)
	assert.InDelta(t, 1.0/DefaultFPS, m.Animations[0].Duration, 1e-6)
}
