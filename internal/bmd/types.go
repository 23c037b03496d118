package bmd

import "github.com/go-gl/mathgl/mgl32"

// Triangle holds polygon type and index triples into vertex/normal/texcoord arrays.
// Polygon == 4 means quad (two triangles: 0-1-2 and 0-2-3).
type Triangle struct {
	Polygon int
	VI      [4]int16
	NI      [4]int16
	TI      [4]int16
}

// Corners returns the triangles of t as corner positions (0..3).
func (t Triangle) Corners() [][3]int {
	if t.Polygon == 4 {
		return [][3]int{{0, 1, 2}, {0, 2, 3}}
	}
	return [][3]int{{0, 1, 2}}
}

// Normal is a normal vector in the space of its bone.
type Normal struct {
	Node   int16
	Vector [3]float32
	// BindVertex is stored by the format but unused.
	BindVertex int16
}

// Mesh holds parsed geometry for one sub-mesh within a BMD file.
// Positions are in the space of the bone named by Nodes.
type Mesh struct {
	Verts   [][3]float32
	Nodes   []int16 // bone index per vertex
	Normals []Normal
	UVs     [][2]float32
	Tris    []Triangle
	Texture int16
	TexPath string // texture reference from BMD (e.g. "sword04.jpg")
}

// Action is one animation clip. Positions holds the root motion when
// LockPositions is set.
type Action struct {
	NumKeys       int
	LockPositions bool
	Positions     []mgl32.Vec3
}

// Motion holds one bone's keys for one action. Both slices have the
// action's key count, or are empty when the action has no keys.
type Motion struct {
	Positions []mgl32.Vec3
	Rotations []mgl32.Vec3 // Euler XYZ radians
}

// Bone holds one entry of the skeleton hierarchy.
type Bone struct {
	Name    string
	Parent  int
	IsDummy bool
	Motions []Motion // one per action
}

// BindPose returns the first key of the first action that has keys.
func (b *Bone) BindPose() (pos, rot mgl32.Vec3) {
	for _, m := range b.Motions {
		if len(m.Positions) > 0 && len(m.Rotations) > 0 {
			return m.Positions[0], m.Rotations[0]
		}
	}
	return mgl32.Vec3{}, mgl32.Vec3{}
}

// Model is a parsed BMD file.
type Model struct {
	Name    string
	Version byte
	Meshes  []Mesh
	Bones   []Bone
	Actions []Action
}
