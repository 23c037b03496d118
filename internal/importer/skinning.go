package importer

import (
	"sort"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/chewxy/math32"
)

// MaxInfluences is the number of bone slots per vertex.
const MaxInfluences = 4

type influence struct {
	bone   int32
	weight float32
}

// gatherInfluences resolves every bone of src to a model node and groups
// the bone weights by vertex.
func (p *parser) gatherInfluences(src *scene.Mesh, numVerts int) ([]model.Bone, [][]influence, error) {
	bones := make([]model.Bone, len(src.Bones))
	perVertex := make([][]influence, numVerts)
	for bi, b := range src.Bones {
		node, ok := p.nodeMap[b.Node]
		if !ok && b.Node < 0 {
			if n := p.m.FindFirstNodeByName(b.Name); n >= 0 {
				node, ok = n, true
			}
		}
		if !ok {
			return nil, nil, expectf("mesh %q: bone %q has no imported node", src.Name, b.Name)
		}
		bones[bi] = model.Bone{OffsetMatrix: b.Offset.Transpose(), NodeIndex: node}

		for _, w := range b.Weights {
			if int(w.Vertex) >= numVerts {
				return nil, nil, expectf("mesh %q: bone %q weights vertex %d out of range [0,%d)", src.Name, b.Name, w.Vertex, numVerts)
			}
			perVertex[w.Vertex] = append(perVertex[w.Vertex], influence{bone: int32(bi), weight: w.Weight})
		}
	}
	return bones, perVertex, nil
}

// reduceInfluences keeps the MaxInfluences heaviest influences and
// rescales them to sum to 1. A negligible sum is left alone.
func reduceInfluences(in []influence) []influence {
	if len(in) > MaxInfluences {
		sort.SliceStable(in, func(i, j int) bool { return in[i].weight > in[j].weight })
		in = in[:MaxInfluences]
	}

	var sum float32
	for _, x := range in {
		sum += x.weight
	}
	if sum > 1e-6 && math32.Abs(sum-1) > 1e-7 {
		for i := range in {
			in[i].weight /= sum
		}
	}
	return in
}
