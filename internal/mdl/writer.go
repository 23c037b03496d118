package mdl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"mdlconv/internal/mathutil"
	"mdlconv/internal/model"

	"github.com/google/uuid"
)

type chunkWriter struct {
	refs []chunkRef
	data bytes.Buffer
}

// add appends a chunk and returns its index.
func (c *chunkWriter) add(b []byte) int {
	if pad := c.data.Len() % chunkAlign; pad != 0 {
		c.data.Write(make([]byte, chunkAlign-pad))
	}
	c.refs = append(c.refs, chunkRef{Offset: int64(c.data.Len()), Size: int64(len(b))})
	c.data.Write(b)
	return len(c.refs) - 1
}

func (c *chunkWriter) addFloats(v []float32) int {
	b := make([]byte, 0, len(v)*4)
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return c.add(b)
}

func (c *chunkWriter) addInts(v []int32) int {
	b := make([]byte, 0, len(v)*4)
	for _, i := range v {
		b = binary.LittleEndian.AppendUint32(b, uint32(i))
	}
	return c.add(b)
}

// WriteFile writes m to path. The file id is derived from the base name.
func WriteFile(path string, m *model.Model) error {
	return WriteFileID(path, m, model.AssetID(filepath.Base(path)))
}

// WriteFileID is WriteFile with an explicit asset id.
func WriteFileID(path string, m *model.Model, id uuid.UUID) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mdl: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := Write(w, m, id); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("mdl: write %s: %w", path, err)
	}
	return f.Close()
}

// Write serializes m.
func Write(w io.Writer, m *model.Model, id uuid.UUID) error {
	var cw chunkWriter
	h := header{
		ID:   id.String(),
		Root: m.RootNode,
	}

	for _, n := range m.Nodes {
		nj := nodeJSON{
			Name:      n.Name,
			Transform: toTransformJSON(n.LocalTransform),
			Children:  n.Children,
		}
		for _, a := range n.MeshAttachments {
			nj.Meshes = append(nj.Meshes, attachmentJSON{Mesh: a.MeshIndex, Material: a.MaterialIndex})
		}
		h.Nodes = append(h.Nodes, nj)
	}

	for _, mesh := range m.Meshes {
		h.Meshes = append(h.Meshes, encodeMesh(&cw, mesh))
	}
	for _, mat := range m.Materials {
		h.Materials = append(h.Materials, materialJSON{Name: mat.Name, Asset: mat.AssetName})
	}
	for _, a := range m.Animations {
		h.Animations = append(h.Animations, encodeAnimation(&cw, a))
	}
	if !m.Collision.Empty() {
		h.Collision = encodeCollision(&cw, &m.Collision)
	}
	h.Chunks = cw.refs

	hdr, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("mdl: encode header: %w", err)
	}
	// Pad the header so the first chunk is aligned in the file as well.
	if pad := (12 + len(hdr)) % chunkAlign; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte{' '}, chunkAlign-pad)...)
	}

	pre := make([]byte, 0, 12)
	pre = append(pre, Magic...)
	pre = binary.LittleEndian.AppendUint32(pre, Version)
	pre = binary.LittleEndian.AppendUint32(pre, uint32(len(hdr)))
	for _, b := range [][]byte{pre, hdr, cw.data.Bytes()} {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("mdl: write: %w", err)
		}
	}
	return nil
}

func encodeMesh(cw *chunkWriter, mesh *model.Mesh) meshJSON {
	mj := meshJSON{
		Name:        mesh.Name,
		Topology:    mesh.Topology.String(),
		IndexFormat: mesh.IndexFormat.String(),
		NumElements: mesh.NumElements,
		NumVertices: mesh.NumVertices,
		Stride:      mesh.Stride,
		Indices:     -1,
	}
	for _, a := range mesh.Decl {
		mj.Decl = append(mj.Decl, attribJSON{
			Slot:     a.BufferSlot,
			Semantic: a.Semantic.String(),
			Format:   a.Format.String(),
			Offset:   a.ByteOffset,
		})
	}
	if !mesh.AABB.IsEmpty() {
		mj.AABB = &boxJSON{Min: mesh.AABB.Min, Max: mesh.AABB.Max}
	}
	for _, b := range mesh.Bones {
		mj.Bones = append(mj.Bones, boneJSON{Node: b.NodeIndex, Offset: mathutil.RowMajor(b.OffsetMatrix)})
	}
	mj.Vertices = cw.add(mesh.VertexData[mesh.VBOffset:])
	if mesh.IndexFormat != model.IndexNone {
		mj.Indices = cw.add(mesh.IndexData[mesh.IBOffset:])
	}
	return mj
}

func encodeAnimation(cw *chunkWriter, a *model.Animation) animationJSON {
	aj := animationJSON{Name: a.Name, Duration: a.Duration}
	for _, node := range a.Nodes() {
		kf := a.PerNode[node]
		tj := trackJSON{Node: node, Positions: -1, Rotations: -1, Scalings: -1}
		if len(kf.Positions) > 0 {
			tj.Positions = cw.addFloats(packVec3Keys(kf.Positions))
		}
		if len(kf.Rotations) > 0 {
			v := make([]float32, 0, len(kf.Rotations)*5)
			for _, k := range kf.Rotations {
				v = append(v, k.Time, k.Value.V[0], k.Value.V[1], k.Value.V[2], k.Value.W)
			}
			tj.Rotations = cw.addFloats(v)
		}
		if len(kf.Scalings) > 0 {
			tj.Scalings = cw.addFloats(packVec3Keys(kf.Scalings))
		}
		aj.Tracks = append(aj.Tracks, tj)
	}
	return aj
}

func packVec3Keys(keys []model.Vec3Key) []float32 {
	v := make([]float32, 0, len(keys)*4)
	for _, k := range keys {
		v = append(v, k.Time, k.Value[0], k.Value[1], k.Value[2])
	}
	return v
}

func encodeCollision(cw *chunkWriter, c *model.Collision) *collisionJSON {
	hull := func(m model.CollisionMesh) collisionMeshJSON {
		v := make([]float32, 0, len(m.Vertices)*3)
		for _, p := range m.Vertices {
			v = append(v, p[0], p[1], p[2])
		}
		return collisionMeshJSON{Vertices: cw.addFloats(v), Indices: cw.addInts(m.Indices)}
	}

	cj := &collisionJSON{}
	for _, m := range c.ConvexHulls {
		cj.Convex = append(cj.Convex, hull(m))
	}
	for _, m := range c.ConcaveHulls {
		cj.Concave = append(cj.Concave, hull(m))
	}
	for _, b := range c.Boxes {
		cj.Boxes = append(cj.Boxes, boxShapeJSON{Transform: toTransformJSON(b.Transform), HalfDiagonal: b.HalfDiagonal})
	}
	for _, s := range c.Capsules {
		cj.Capsules = append(cj.Capsules, capsuleJSON{Transform: toTransformJSON(s.Transform), HalfHeight: s.HalfHeight, Radius: s.Radius})
	}
	for _, s := range c.Cylinders {
		cj.Cylinders = append(cj.Cylinders, boxShapeJSON{Transform: toTransformJSON(s.Transform), HalfDiagonal: s.HalfDiagonal})
	}
	for _, s := range c.Spheres {
		cj.Spheres = append(cj.Spheres, sphereJSON{Transform: toTransformJSON(s.Transform), Radius: s.Radius})
	}
	return cj
}
