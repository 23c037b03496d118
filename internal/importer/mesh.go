package importer

import (
	"encoding/binary"
	"math"

	"mdlconv/internal/mathutil"
	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// channel is one float vertex stream. Source elements are srcComps
// floats wide; the first attrib.Format.Size()/4 of them are written.
type channel struct {
	attrib   model.VertexAttrib
	data     []float32
	srcComps int
}

func pending(s model.Semantic, f model.Format) model.VertexAttrib {
	return model.VertexAttrib{Semantic: s, Format: f, ByteOffset: -1}
}

func flatten3(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flatten4(vs []mgl32.Vec4) []float32 {
	out := make([]float32, 0, len(vs)*4)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2], v[3])
	}
	return out
}

// vertexChannels lists the present float channels in declaration order:
// position, color, normal, tangent+binormal, uv.
func vertexChannels(src *scene.Mesh) []channel {
	chans := []channel{{pending(model.SemanticPosition, model.FormatFloat3), flatten3(src.Positions), 3}}
	if len(src.Colors) > 0 {
		chans = append(chans, channel{pending(model.SemanticColor, model.FormatFloat4), flatten4(src.Colors), 4})
	}
	if len(src.Normals) > 0 {
		chans = append(chans, channel{pending(model.SemanticNormal, model.FormatFloat3), flatten3(src.Normals), 3})
	}
	if src.HasTangentsAndBitangents() {
		chans = append(chans,
			channel{pending(model.SemanticTangent, model.FormatFloat3), flatten3(src.Tangents), 3},
			channel{pending(model.SemanticBinormal, model.FormatFloat3), flatten3(src.Bitangents), 3},
		)
	}
	if len(src.UVs) > 0 {
		chans = append(chans, channel{pending(model.SemanticUV, model.FormatFloat2), flatten3(src.UVs), 3})
	}
	return chans
}

func (p *parser) importMesh(dst *model.Mesh, src *scene.Mesh) error {
	numVerts := len(src.Positions)
	chans := vertexChannels(src)
	for _, ch := range chans {
		if got := len(ch.data) / ch.srcComps; got != numVerts {
			return expectf("mesh %q: %s has %d elements for %d vertices", src.Name, ch.attrib.Semantic, got, numVerts)
		}
	}

	var (
		bones      []model.Bone
		skin       [][]influence
		hasSkin    bool
		unweighted int
	)
	if p.skinning && len(src.Bones) > 0 {
		var err error
		bones, skin, err = p.gatherInfluences(src, numVerts)
		if err != nil {
			return err
		}
		for v := range skin {
			if len(skin[v]) == 0 {
				unweighted++
				continue
			}
			hasSkin = true
			skin[v] = reduceInfluences(skin[v])
		}
	}

	// Step A: declaration and stride.
	decl := make(model.VertexDecl, 0, len(chans)+2)
	for _, ch := range chans {
		decl = append(decl, ch.attrib)
	}
	if hasSkin {
		decl = append(decl,
			pending(model.SemanticBoneIDs, model.FormatInt4),
			pending(model.SemanticBoneWeights, model.FormatFloat4),
		)
	}
	decl = decl.Normalize()
	stride := decl.Stride(0)
	offsets := model.OffsetsOf(decl)

	// Step B: interleave.
	vb := make([]byte, numVerts*stride)
	aabb := mathutil.EmptyBox()
	for ci, ch := range chans {
		off := decl[ci].ByteOffset
		comps := ch.attrib.Format.Size() / 4
		for v := 0; v < numVerts; v++ {
			base := v*stride + off
			for c := 0; c < comps; c++ {
				binary.LittleEndian.PutUint32(vb[base+c*4:], math.Float32bits(ch.data[v*ch.srcComps+c]))
			}
		}
	}
	for _, pos := range src.Positions {
		aabb.Expand(pos)
	}

	// Step C: skinning.
	if hasSkin {
		for v, infl := range skin {
			base := v * stride
			for k, in := range infl {
				binary.LittleEndian.PutUint32(vb[base+offsets.BoneIDs+k*4:], uint32(in.bone))
				binary.LittleEndian.PutUint32(vb[base+offsets.BoneWeights+k*4:], math.Float32bits(in.weight))
			}
		}
	} else {
		bones = nil
	}

	// Step D: indices.
	indices := make([]uint32, 0, len(src.Faces)*3)
	sequential := true
	for fi, face := range src.Faces {
		if len(face) != 3 {
			return expectf("mesh %q: face %d has %d indices, want 3", src.Name, fi, len(face))
		}
		for k, ix := range face {
			if int(ix) >= numVerts {
				return expectf("mesh %q: face %d index %d out of range [0,%d)", src.Name, fi, ix, numVerts)
			}
			if ix != uint32(fi*3+k) {
				sequential = false
			}
			indices = append(indices, ix)
		}
	}

	// Step E: assemble.
	*dst = model.Mesh{
		Name:        src.Name,
		Topology:    model.TopologyTriangleList,
		NumVertices: numVerts,
		Decl:        decl,
		Stride:      stride,
		Offsets:     offsets,
		VertexData:  vb,
		AABB:        aabb,
		Bones:       bones,
	}
	if sequential && len(indices) == numVerts {
		dst.IndexFormat = model.IndexNone
		dst.NumElements = numVerts
	} else {
		dst.IndexFormat = model.IndexUint32
		dst.NumElements = len(indices)
		dst.IndexData = make([]byte, len(indices)*4)
		for i, ix := range indices {
			binary.LittleEndian.PutUint32(dst.IndexData[i*4:], ix)
		}
	}

	p.log.Debug("imported mesh", "name", src.Name, "vertices", numVerts, "stride", stride,
		"indexed", dst.IndexFormat != model.IndexNone, "bones", len(dst.Bones), "unweighted", unweighted)
	return nil
}
