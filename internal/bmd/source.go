package bmd

import (
	"fmt"
	"path"
	"strings"

	"mdlconv/internal/mathutil"
	"mdlconv/internal/scene"
	"mdlconv/internal/skeleton"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFPS is the key rate of BMD actions.
const DefaultFPS = 25

// Options control how a Model is exposed as a scene.
type Options struct {
	// FPS is the number of action keys per second. Zero means DefaultFPS.
	FPS float64
	// ZUp rotates the root so the Z-up source becomes Y-up.
	ZUp bool
}

// NewSource builds a scene graph from m: a root, one node per bone and
// one node carrying every mesh. Vertices are moved into bind pose and
// skinned rigidly to their bone.
func NewSource(m *Model, opts Options) (*scene.Scene, error) {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}

	names := scene.UniqueNames{}
	rootName := m.Name
	if rootName == "" {
		rootName = "bmd"
	}
	b := scene.NewBuilder(names.Take(rootName))
	if opts.ZUp {
		b.SetTransform(b.Root(), mathutil.ZUpToYUp)
	}

	joints := joints(m.Bones)
	pose := skeleton.NewPose(joints)
	offsets := skeleton.OffsetMatrices(pose.Worlds())

	boneNodes := make([]int, len(m.Bones))
	boneNames := make([]string, len(m.Bones))
	for i, bone := range m.Bones {
		parent := b.Root()
		if !bone.IsDummy && skeleton.HasParent(joints, i) {
			parent = boneNodes[bone.Parent]
		}
		local := mgl32.Ident4()
		if !bone.IsDummy {
			local = joints[i].Local()
		}
		boneNames[i] = names.Take(boneName(bone, i))
		boneNodes[i] = b.AddNode(parent, boneNames[i], local)
	}

	meshNode := b.AddNode(b.Root(), names.Take("mesh"), mgl32.Ident4())
	materials := map[string]int{}
	for i := range m.Meshes {
		src := &m.Meshes[i]
		mat, ok := materials[src.TexPath]
		if !ok {
			mat = b.AddMaterial(material(src.TexPath))
			materials[src.TexPath] = mat
		}
		mesh, err := convertMesh(src, i, pose, func(bone int) (string, int, mgl32.Mat4) {
			return boneNames[bone], boneNodes[bone], offsets[bone].Transpose()
		})
		if err != nil {
			return nil, err
		}
		mesh.MaterialIndex = mat
		b.Attach(meshNode, b.AddMesh(mesh))
	}

	for a, act := range m.Actions {
		anim := convertAction(m, a, act, boneNames, opts.FPS)
		if anim != nil {
			b.AddAnimation(anim)
		}
	}
	return b.Scene(), nil
}

func joints(bones []Bone) []skeleton.Joint {
	out := make([]skeleton.Joint, len(bones))
	for i := range bones {
		pos, rot := bones[i].BindPose()
		out[i] = skeleton.Joint{
			Parent:   bones[i].Parent,
			Dummy:    bones[i].IsDummy,
			Position: pos,
			Rotation: rot,
		}
	}
	return out
}

func boneName(b Bone, i int) string {
	switch {
	case b.IsDummy:
		return fmt.Sprintf("dummy_%d", i)
	case b.Name == "":
		return fmt.Sprintf("bone_%d", i)
	}
	return b.Name
}

func material(texPath string) *scene.Material {
	mat := &scene.Material{
		Name:       "default",
		Properties: map[string]any{},
		Textures:   map[scene.TextureType]string{},
	}
	if texPath != "" {
		base := path.Base(texPath)
		mat.Name = strings.TrimSuffix(base, path.Ext(base))
		mat.Textures[scene.TextureDiffuse] = texPath
	}
	return mat
}

type corner struct {
	v, n, t int16
}

// convertMesh expands the per-corner index triples into shared vertices.
func convertMesh(src *Mesh, mi int, pose *skeleton.Pose, bone func(int) (string, int, mgl32.Mat4)) (*scene.Mesh, error) {
	out := &scene.Mesh{Name: fmt.Sprintf("mesh_%d", mi)}
	hasNormals := len(src.Normals) > 0
	hasUVs := len(src.UVs) > 0

	vertexOf := map[corner]uint32{}
	weights := map[int][]scene.VertexWeight{}
	var boneOrder []int

	add := func(c corner) (uint32, error) {
		if v, ok := vertexOf[c]; ok {
			return v, nil
		}
		if int(c.v) < 0 || int(c.v) >= len(src.Verts) {
			return 0, fmt.Errorf("bmd: mesh %d: vertex index %d out of range", mi, c.v)
		}
		v := uint32(len(out.Positions))
		vertexOf[c] = v

		node := int(src.Nodes[c.v])
		out.Positions = append(out.Positions, pose.Point(node, src.Verts[c.v]))
		if hasNormals {
			var n mgl32.Vec3
			if int(c.n) >= 0 && int(c.n) < len(src.Normals) {
				sn := src.Normals[c.n]
				n = pose.Normal(int(sn.Node), sn.Vector)
			}
			out.Normals = append(out.Normals, n)
		}
		if hasUVs {
			var uv mgl32.Vec3
			if int(c.t) >= 0 && int(c.t) < len(src.UVs) {
				uv = mgl32.Vec3{src.UVs[c.t][0], src.UVs[c.t][1], 0}
			}
			out.UVs = append(out.UVs, uv)
		}
		if node >= 0 && node < len(pose.Worlds()) {
			if _, seen := weights[node]; !seen {
				boneOrder = append(boneOrder, node)
			}
			weights[node] = append(weights[node], scene.VertexWeight{Vertex: v, Weight: 1})
		}
		return v, nil
	}

	for _, tri := range src.Tris {
		for _, c := range tri.Corners() {
			face := make([]uint32, 3)
			for k, corn := range c {
				v, err := add(corner{tri.VI[corn], tri.NI[corn], tri.TI[corn]})
				if err != nil {
					return nil, err
				}
				face[k] = v
			}
			out.Faces = append(out.Faces, face)
		}
	}

	for _, node := range boneOrder {
		name, target, offset := bone(node)
		out.Bones = append(out.Bones, scene.Bone{
			Name:    name,
			Node:    target,
			Offset:  offset,
			Weights: weights[node],
		})
	}
	return out, nil
}

// convertAction emits one channel per non-dummy bone with keys. Key k is
// at tick k.
func convertAction(m *Model, a int, act Action, boneNames []string, fps float64) *scene.Animation {
	if act.NumKeys == 0 {
		return nil
	}
	anim := &scene.Animation{
		Name:           fmt.Sprintf("action_%d", a),
		Duration:       float64(act.NumKeys - 1),
		TicksPerSecond: fps,
	}
	for i, bone := range m.Bones {
		if bone.IsDummy || a >= len(bone.Motions) {
			continue
		}
		mo := bone.Motions[a]
		if len(mo.Positions) == 0 {
			continue
		}
		ch := scene.Channel{NodeName: boneNames[i]}
		for k, p := range mo.Positions {
			ch.PositionKeys = append(ch.PositionKeys, scene.VectorKey{Time: float64(k), Value: p})
		}
		for k, r := range mo.Rotations {
			ch.RotationKeys = append(ch.RotationKeys, scene.QuatKey{
				Time:  float64(k),
				Value: mathutil.EulerToQuat(r[0], r[1], r[2]),
			})
		}
		anim.Channels = append(anim.Channels, ch)
	}
	return anim
}
