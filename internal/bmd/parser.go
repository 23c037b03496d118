package bmd

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Limits that reject garbage headers before allocating.
const (
	maxMeshes  = 100
	maxBones   = 1000
	maxActions = 1000
)

// Parse reads a BMD file.
// Supports versions 10 (unencrypted), 12 (XOR), and 15 (LEA-256 ECB).
func Parse(filepath string, keys Keys) (*Model, error) {
	raw, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", filepath, err)
	}
	m, err := Decode(raw, keys)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, filepath)
	}
	return m, nil
}

// Decode parses BMD file contents.
func Decode(raw []byte, keys Keys) (*Model, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, fmt.Errorf("bmd: invalid header")
	}

	version := raw[3]
	var data []byte

	switch version {
	case 15, 12:
		if len(raw) < 8 {
			return nil, fmt.Errorf("bmd: truncated v%d header", version)
		}
		size := binary.LittleEndian.Uint32(raw[4:8])
		if 8+int(size) > len(raw) {
			return nil, fmt.Errorf("bmd: truncated v%d data", version)
		}
		payload := raw[8 : 8+size]
		if version == 12 {
			data = DecryptXOR(payload, keys.XOR)
			break
		}
		if !keys.HasLEA() {
			return nil, fmt.Errorf("bmd: v15 file needs a LEA key")
		}
		var err error
		if data, err = DecryptLEA(payload, keys.LEA); err != nil {
			return nil, err
		}
	default:
		data = raw[4:]
	}

	r := &reader{data: data}
	m, err := r.parse()
	if err != nil {
		return nil, err
	}
	m.Version = version
	return m, nil
}

// reader is a little-endian cursor. Reads past the end return zero
// values and set short.
type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readStr(n int) string {
	s := r.take(n)
	// Find null terminator
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (r *reader) readU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) readF32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) parse() (*Model, error) {
	m := &Model{Name: r.readStr(32)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > maxMeshes {
		return nil, fmt.Errorf("bmd: invalid mesh count %d", meshCount)
	}
	if boneCount > maxBones || actionCount > maxActions {
		return nil, fmt.Errorf("bmd: invalid bone/action count %d/%d", boneCount, actionCount)
	}

	m.Meshes = make([]Mesh, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		mesh, err := r.parseMesh(i)
		if err != nil {
			return nil, err
		}
		m.Meshes = append(m.Meshes, mesh)
	}

	m.Actions = make([]Action, actionCount)
	for a := range m.Actions {
		act := &m.Actions[a]
		act.NumKeys = int(r.readI16())
		if act.NumKeys < 0 {
			return nil, fmt.Errorf("bmd: action %d has negative key count", a)
		}
		act.LockPositions = r.readByte() > 0
		if act.LockPositions {
			act.Positions = make([]mgl32.Vec3, act.NumKeys)
			for k := range act.Positions {
				act.Positions[k] = r.readVec3()
			}
		}
	}

	m.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount; b++ {
		if isDummy := r.readByte() > 0; isDummy {
			m.Bones = append(m.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		bone := Bone{
			Name:    r.readStr(32),
			Parent:  int(r.readI16()),
			Motions: make([]Motion, actionCount),
		}
		for a, act := range m.Actions {
			if act.NumKeys == 0 {
				continue
			}
			mo := &bone.Motions[a]
			mo.Positions = make([]mgl32.Vec3, act.NumKeys)
			for k := range mo.Positions {
				mo.Positions[k] = r.readVec3()
			}
			mo.Rotations = make([]mgl32.Vec3, act.NumKeys)
			for k := range mo.Rotations {
				mo.Rotations[k] = r.readVec3()
			}
		}
		m.Bones = append(m.Bones, bone)
	}

	if r.short {
		return nil, fmt.Errorf("bmd: truncated data (%d bytes)", len(r.data))
	}
	return m, nil
}

func (r *reader) parseMesh(i int) (Mesh, error) {
	nv := int(r.readI16())
	nn := int(r.readI16())
	ntc := int(r.readI16())
	nt := int(r.readI16())
	texture := r.readI16()
	if nv < 0 || nn < 0 || ntc < 0 || nt < 0 {
		return Mesh{}, fmt.Errorf("bmd: mesh %d has negative element counts", i)
	}

	mesh := Mesh{Texture: texture}

	// Vertices: 16 bytes each (node:i16, pad:i16, x:f32, y:f32, z:f32)
	mesh.Verts = make([][3]float32, nv)
	mesh.Nodes = make([]int16, nv)
	for j := 0; j < nv; j++ {
		mesh.Nodes[j] = r.readI16()
		_ = r.readI16() // padding
		mesh.Verts[j] = r.readVec3()
	}

	// Normals: 20 bytes each (node:i16, pad:i16, nx:f32, ny:f32, nz:f32, bind:i16, pad:i16)
	mesh.Normals = make([]Normal, nn)
	for j := 0; j < nn; j++ {
		n := &mesh.Normals[j]
		n.Node = r.readI16()
		_ = r.readI16() // padding
		n.Vector = r.readVec3()
		n.BindVertex = r.readI16()
		_ = r.readI16() // padding
	}

	// TexCoords: 8 bytes each (u:f32, v:f32)
	mesh.UVs = make([][2]float32, ntc)
	for j := 0; j < ntc; j++ {
		mesh.UVs[j] = [2]float32{r.readF32(), r.readF32()}
	}

	// Triangles: 64 bytes each
	mesh.Tris = make([]Triangle, nt)
	for j := 0; j < nt; j++ {
		b := r.take(64)
		if b == nil {
			return Mesh{}, fmt.Errorf("bmd: mesh %d: truncated triangle %d", i, j)
		}
		tri := Triangle{Polygon: int(b[0])}
		for k := 0; k < 4; k++ {
			tri.VI[k] = int16(binary.LittleEndian.Uint16(b[2+k*2:]))
			tri.NI[k] = int16(binary.LittleEndian.Uint16(b[10+k*2:]))
			tri.TI[k] = int16(binary.LittleEndian.Uint16(b[18+k*2:]))
		}
		if tri.Polygon != 3 && tri.Polygon != 4 {
			return Mesh{}, fmt.Errorf("bmd: mesh %d triangle %d: polygon size %d", i, j, tri.Polygon)
		}
		mesh.Tris[j] = tri
	}

	// Normalize backslashes
	mesh.TexPath = strings.ReplaceAll(r.readStr(32), "\\", "/")
	if r.short {
		return Mesh{}, fmt.Errorf("bmd: mesh %d: truncated data", i)
	}
	return mesh, nil
}
