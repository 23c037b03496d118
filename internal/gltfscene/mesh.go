package gltfscene

import (
	"fmt"

	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// meshPrimitives converts every primitive of glTF mesh mi, once per skin
// it is used with, and returns the source mesh indices.
func (c *converter) meshPrimitives(mi, skin int) ([]int, error) {
	key := [2]int{mi, skin}
	if prims, ok := c.prims[key]; ok {
		return prims, nil
	}
	if mi < 0 || mi >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("gltf: mesh %d out of range", mi)
	}
	gm := c.doc.Meshes[mi]
	var prims []int
	for pi, p := range gm.Primitives {
		name := gm.Name
		if len(gm.Primitives) > 1 {
			name = fmt.Sprintf("%s_%d", gm.Name, pi)
		}
		m, err := c.convertPrimitive(name, p, skin)
		if err != nil {
			return nil, fmt.Errorf("gltf: mesh %d (%s) primitive %d: %w", mi, gm.Name, pi, err)
		}
		c.out.Meshes = append(c.out.Meshes, m)
		prims = append(prims, len(c.out.Meshes)-1)
	}
	c.prims[key] = prims
	return prims, nil
}

func (c *converter) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	return c.doc.Accessors[i], nil
}

func (c *converter) convertPrimitive(name string, p *gltf.Primitive, skin int) (*scene.Mesh, error) {
	m := &scene.Mesh{Name: name}
	if p.Material != nil {
		m.MaterialIndex = *p.Material
	} else {
		m.MaterialIndex = c.fallbackMaterial()
	}

	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	acr, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	m.Positions = make([]mgl32.Vec3, len(positions))
	for i, v := range positions {
		m.Positions[i] = mgl32.Vec3(v)
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		m.Normals = make([]mgl32.Vec3, len(normals))
		for i, v := range normals {
			m.Normals[i] = mgl32.Vec3(v)
		}
	}

	if idx, ok := p.Attributes[gltf.TANGENT]; ok && len(m.Normals) > 0 {
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read tangents: %w", err)
		}
		if len(tangents) == len(m.Normals) {
			m.Tangents = make([]mgl32.Vec3, len(tangents))
			m.Bitangents = make([]mgl32.Vec3, len(tangents))
			for i, t := range tangents {
				tv := mgl32.Vec3{t[0], t[1], t[2]}
				m.Tangents[i] = tv
				m.Bitangents[i] = m.Normals[i].Cross(tv).Mul(t[3])
			}
		}
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read texcoords: %w", err)
		}
		m.UVs = make([]mgl32.Vec3, len(uvs))
		for i, uv := range uvs {
			v := uv[1]
			if c.opts.FlipV {
				v = 1 - v
			}
			m.UVs[i] = mgl32.Vec3{uv[0], v, 0}
		}
	}

	if idx, ok := p.Attributes[gltf.COLOR_0]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return nil, err
		}
		colors, err := modeler.ReadColor64(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read colors: %w", err)
		}
		m.Colors = make([]mgl32.Vec4, len(colors))
		for i, col := range colors {
			m.Colors[i] = mgl32.Vec4{
				float32(col[0]) / 65535, float32(col[1]) / 65535,
				float32(col[2]) / 65535, float32(col[3]) / 65535,
			}
		}
	}

	if m.Faces, err = c.faces(p, len(m.Positions)); err != nil {
		return nil, err
	}
	if skin >= 0 {
		if m.Bones, err = c.bones(p, skin, len(m.Positions)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// faces groups the primitive's indices into triangles. Strips and fans
// are unrolled; points and lines come out as 1- and 2-index faces.
func (c *converter) faces(p *gltf.Primitive, numVerts int) ([][]uint32, error) {
	var idx []uint32
	if p.Indices != nil {
		acr, err := c.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		if idx, err = modeler.ReadIndices(c.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		idx = make([]uint32, numVerts)
		for i := range idx {
			idx[i] = uint32(i)
		}
	}

	var faces [][]uint32
	switch p.Mode {
	case gltf.PrimitiveTriangles:
		for i := 0; i < len(idx); i += 3 {
			faces = append(faces, idx[i:min(i+3, len(idx))])
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				faces = append(faces, []uint32{idx[i], idx[i+1], idx[i+2]})
			} else {
				faces = append(faces, []uint32{idx[i+1], idx[i], idx[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			faces = append(faces, []uint32{idx[0], idx[i], idx[i+1]})
		}
	case gltf.PrimitivePoints:
		for i := range idx {
			faces = append(faces, idx[i:i+1])
		}
	default:
		for i := 0; i+1 < len(idx); i += 2 {
			faces = append(faces, idx[i:i+2])
		}
	}
	return faces, nil
}

// bones transposes the JOINTS_n / WEIGHTS_n vertex sets into per-joint
// weight lists. Zero weights are skipped.
func (c *converter) bones(p *gltf.Primitive, skinIdx, numVerts int) ([]scene.Bone, error) {
	if skinIdx < 0 || skinIdx >= len(c.doc.Skins) {
		return nil, fmt.Errorf("skin %d out of range", skinIdx)
	}
	skin := c.doc.Skins[skinIdx]

	bones := make([]scene.Bone, len(skin.Joints))
	for j, node := range skin.Joints {
		if node < 0 || node >= len(c.doc.Nodes) {
			return nil, fmt.Errorf("skin %d joint %d: node %d out of range", skinIdx, j, node)
		}
		bones[j] = scene.Bone{Name: c.names[node], Node: node, Offset: mgl32.Ident4()}
	}
	if skin.InverseBindMatrices != nil {
		acr, err := c.accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, err
		}
		data, err := modeler.ReadAccessor(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read inverse bind matrices: %w", err)
		}
		mats, ok := data.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("inverse bind matrices have type %T", data)
		}
		for j := range bones {
			if j < len(mats) {
				bones[j].Offset = mat4(mats[j]).Transpose()
			}
		}
	}

	for set := 0; ; set++ {
		jIdx, okJ := p.Attributes[fmt.Sprintf("JOINTS_%d", set)]
		wIdx, okW := p.Attributes[fmt.Sprintf("WEIGHTS_%d", set)]
		if !okJ || !okW {
			break
		}
		jAcr, err := c.accessor(jIdx)
		if err != nil {
			return nil, err
		}
		wAcr, err := c.accessor(wIdx)
		if err != nil {
			return nil, err
		}
		joints, err := modeler.ReadJoints(c.doc, jAcr, nil)
		if err != nil {
			return nil, fmt.Errorf("read joints: %w", err)
		}
		weights, err := modeler.ReadWeights(c.doc, wAcr, nil)
		if err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
		for v := 0; v < numVerts && v < len(joints) && v < len(weights); v++ {
			for k := 0; k < 4; k++ {
				w, j := weights[v][k], int(joints[v][k])
				if w == 0 || j >= len(bones) {
					continue
				}
				bones[j].Weights = append(bones[j].Weights, scene.VertexWeight{Vertex: uint32(v), Weight: w})
			}
		}
	}
	return bones, nil
}

// mat4 flattens a glTF column-major matrix.
func mat4(m [4][4]float32) mgl32.Mat4 {
	var out mgl32.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[col*4+row] = m[col][row]
		}
	}
	return out
}
