package mdl

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"mdlconv/internal/mathutil"
	"mdlconv/internal/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// File is a decoded model file.
type File struct {
	ID    uuid.UUID
	Model *model.Model
}

// ReadFile reads the model file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mdl: open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return file, nil
}

// Read decodes a model file and validates the result.
func Read(r io.Reader) (*File, error) {
	var pre [12]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, fmt.Errorf("mdl: read preamble: %w", err)
	}
	if string(pre[:4]) != Magic {
		return nil, fmt.Errorf("mdl: bad magic %q", pre[:4])
	}
	if v := binary.LittleEndian.Uint32(pre[4:]); v != Version {
		return nil, fmt.Errorf("mdl: unsupported version %d", v)
	}
	n := binary.LittleEndian.Uint32(pre[8:])
	if n > maxHeader {
		return nil, fmt.Errorf("mdl: header length %d too large", n)
	}
	hdr := make([]byte, n)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("mdl: read header: %w", err)
	}
	var h header
	if err := json.Unmarshal(hdr, &h); err != nil {
		return nil, fmt.Errorf("mdl: decode header: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("mdl: read chunks: %w", err)
	}

	id, err := uuid.Parse(h.ID)
	if err != nil {
		return nil, fmt.Errorf("mdl: bad id: %w", err)
	}
	d := decoder{h: &h, data: data}
	m, err := d.model()
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("mdl: %w", err)
	}
	return &File{ID: id, Model: m}, nil
}

type decoder struct {
	h    *header
	data []byte
}

func (d *decoder) chunk(i int) ([]byte, error) {
	if i < 0 || i >= len(d.h.Chunks) {
		return nil, fmt.Errorf("mdl: chunk %d out of range", i)
	}
	c := d.h.Chunks[i]
	if c.Offset < 0 || c.Size < 0 || c.Offset+c.Size > int64(len(d.data)) {
		return nil, fmt.Errorf("mdl: chunk %d exceeds data", i)
	}
	return d.data[c.Offset : c.Offset+c.Size], nil
}

func (d *decoder) floats(i, tuple int) ([]float32, error) {
	b, err := d.chunk(i)
	if err != nil {
		return nil, err
	}
	if len(b)%(4*tuple) != 0 {
		return nil, fmt.Errorf("mdl: chunk %d size %d is not a multiple of %d", i, len(b), 4*tuple)
	}
	out := make([]float32, len(b)/4)
	for k := range out {
		out[k] = math.Float32frombits(binary.LittleEndian.Uint32(b[k*4:]))
	}
	return out, nil
}

func (d *decoder) model() (*model.Model, error) {
	m := model.New()
	m.RootNode = d.h.Root

	for _, nj := range d.h.Nodes {
		n := &model.Node{
			Name:           nj.Name,
			LocalTransform: nj.Transform.transform(),
			Children:       nj.Children,
		}
		for _, a := range nj.Meshes {
			n.MeshAttachments = append(n.MeshAttachments, model.MeshAttachment{MeshIndex: a.Mesh, MaterialIndex: a.Material})
		}
		m.Nodes = append(m.Nodes, n)
	}
	for i, mj := range d.h.Meshes {
		mesh, err := d.mesh(mj)
		if err != nil {
			return nil, fmt.Errorf("mdl: mesh %d: %w", i, err)
		}
		m.Meshes = append(m.Meshes, mesh)
	}
	for _, mj := range d.h.Materials {
		m.Materials = append(m.Materials, &model.Material{Name: mj.Name, AssetName: mj.Asset, PBR: model.DefaultPBRSettings()})
	}
	for i, aj := range d.h.Animations {
		a, err := d.animation(aj)
		if err != nil {
			return nil, fmt.Errorf("mdl: animation %d: %w", i, err)
		}
		m.Animations = append(m.Animations, a)
	}
	if d.h.Collision != nil {
		if err := d.collision(d.h.Collision, &m.Collision); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (d *decoder) mesh(mj meshJSON) (*model.Mesh, error) {
	mesh := &model.Mesh{
		Name:        mj.Name,
		Topology:    model.TopologyTriangleList,
		NumElements: mj.NumElements,
		NumVertices: mj.NumVertices,
		Stride:      mj.Stride,
		AABB:        mathutil.EmptyBox(),
	}
	if mj.Topology != model.TopologyTriangleList.String() {
		return nil, fmt.Errorf("unsupported topology %q", mj.Topology)
	}
	switch mj.IndexFormat {
	case model.IndexNone.String():
		mesh.IndexFormat = model.IndexNone
	case model.IndexUint32.String():
		mesh.IndexFormat = model.IndexUint32
	default:
		return nil, fmt.Errorf("unsupported index format %q", mj.IndexFormat)
	}

	for _, aj := range mj.Decl {
		sem, err := model.ParseSemantic(aj.Semantic)
		if err != nil {
			return nil, err
		}
		f, err := model.ParseFormat(aj.Format)
		if err != nil {
			return nil, err
		}
		mesh.Decl = append(mesh.Decl, model.VertexAttrib{BufferSlot: aj.Slot, Semantic: sem, Format: f, ByteOffset: aj.Offset})
	}
	mesh.Offsets = model.OffsetsOf(mesh.Decl)
	if mj.AABB != nil {
		mesh.AABB = mathutil.Box3{Min: mj.AABB.Min, Max: mj.AABB.Max}
	}
	for _, bj := range mj.Bones {
		mesh.Bones = append(mesh.Bones, model.Bone{NodeIndex: bj.Node, OffsetMatrix: mgl32.Mat4(bj.Offset).Transpose()})
	}

	var err error
	if mesh.VertexData, err = d.chunk(mj.Vertices); err != nil {
		return nil, err
	}
	if mesh.IndexFormat != model.IndexNone {
		if mesh.IndexData, err = d.chunk(mj.Indices); err != nil {
			return nil, err
		}
	}
	return mesh, nil
}

func (d *decoder) animation(aj animationJSON) (*model.Animation, error) {
	a := model.NewAnimation(aj.Name, aj.Duration)
	for _, tj := range aj.Tracks {
		kf := &model.KeyFrames{}
		if tj.Positions >= 0 {
			v, err := d.floats(tj.Positions, 4)
			if err != nil {
				return nil, err
			}
			kf.Positions = unpackVec3Keys(v)
		}
		if tj.Rotations >= 0 {
			v, err := d.floats(tj.Rotations, 5)
			if err != nil {
				return nil, err
			}
			for k := 0; k < len(v); k += 5 {
				kf.Rotations = append(kf.Rotations, model.QuatKey{
					Time:  v[k],
					Value: mgl32.Quat{W: v[k+4], V: mgl32.Vec3{v[k+1], v[k+2], v[k+3]}},
				})
			}
		}
		if tj.Scalings >= 0 {
			v, err := d.floats(tj.Scalings, 4)
			if err != nil {
				return nil, err
			}
			kf.Scalings = unpackVec3Keys(v)
		}
		a.PerNode[tj.Node] = kf
	}
	return a, nil
}

func unpackVec3Keys(v []float32) []model.Vec3Key {
	keys := make([]model.Vec3Key, 0, len(v)/4)
	for k := 0; k < len(v); k += 4 {
		keys = append(keys, model.Vec3Key{Time: v[k], Value: mgl32.Vec3{v[k+1], v[k+2], v[k+3]}})
	}
	return keys
}

func (d *decoder) collision(cj *collisionJSON, c *model.Collision) error {
	hull := func(hj collisionMeshJSON) (model.CollisionMesh, error) {
		var out model.CollisionMesh
		v, err := d.floats(hj.Vertices, 3)
		if err != nil {
			return out, err
		}
		for k := 0; k < len(v); k += 3 {
			out.Vertices = append(out.Vertices, mgl32.Vec3{v[k], v[k+1], v[k+2]})
		}
		b, err := d.chunk(hj.Indices)
		if err != nil {
			return out, err
		}
		if len(b)%4 != 0 {
			return out, fmt.Errorf("mdl: collision index chunk size %d", len(b))
		}
		out.Indices = make([]int32, len(b)/4)
		for k := range out.Indices {
			out.Indices[k] = int32(binary.LittleEndian.Uint32(b[k*4:]))
		}
		return out, nil
	}

	for _, hj := range cj.Convex {
		h, err := hull(hj)
		if err != nil {
			return err
		}
		c.ConvexHulls = append(c.ConvexHulls, h)
	}
	for _, hj := range cj.Concave {
		h, err := hull(hj)
		if err != nil {
			return err
		}
		c.ConcaveHulls = append(c.ConcaveHulls, h)
	}
	for _, b := range cj.Boxes {
		c.Boxes = append(c.Boxes, model.CollisionBox{Transform: b.Transform.transform(), HalfDiagonal: b.HalfDiagonal})
	}
	for _, s := range cj.Capsules {
		c.Capsules = append(c.Capsules, model.CollisionCapsule{Transform: s.Transform.transform(), HalfHeight: s.HalfHeight, Radius: s.Radius})
	}
	for _, s := range cj.Cylinders {
		c.Cylinders = append(c.Cylinders, model.CollisionCylinder{Transform: s.Transform.transform(), HalfDiagonal: s.HalfDiagonal})
	}
	for _, s := range cj.Spheres {
		c.Spheres = append(c.Spheres, model.CollisionSphere{Transform: s.Transform.transform(), Radius: s.Radius})
	}
	return nil
}
