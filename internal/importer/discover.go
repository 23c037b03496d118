package importer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// discover allocates a model node for source node srcIdx and its
// sub-tree, depth-first and pre-order. Meshes and materials are allocated
// the first time a node references them. parentSpace is the accumulated
// transform of the ancestors inside the imported sub-tree.
func (p *parser) discover(srcIdx int, parentSpace mgl32.Mat4) (int, error) {
	if srcIdx < 0 || srcIdx >= p.src.NumNodes() {
		return 0, expectf("node %d out of range [0,%d)", srcIdx, p.src.NumNodes())
	}
	sn := p.src.Node(srcIdx)
	idx := p.m.MakeNode(sn.Name)
	p.nodeMap[srcIdx] = idx
	p.nodeSource = append(p.nodeSource, srcIdx)

	space := parentSpace.Mul4(sn.Transform)
	if kind := collisionKindOf(sn.Name); kind != collisionNone {
		for _, mi := range sn.Meshes {
			p.collision = append(p.collision, collisionInstance{kind: kind, mesh: mi, space: space, node: sn.Name})
		}
	} else {
		for _, mi := range sn.Meshes {
			if err := p.discoverMesh(mi); err != nil {
				return 0, err
			}
		}
	}

	for _, c := range sn.Children {
		ci, err := p.discover(c, space)
		if err != nil {
			return 0, err
		}
		p.m.Nodes[idx].Children = append(p.m.Nodes[idx].Children, ci)
	}
	return idx, nil
}

func (p *parser) discoverMesh(srcIdx int) error {
	if _, ok := p.meshMap[srcIdx]; ok {
		return nil
	}
	if srcIdx < 0 || srcIdx >= p.src.NumMeshes() {
		return expectf("mesh %d out of range [0,%d)", srcIdx, p.src.NumMeshes())
	}
	mesh, err := p.src.Mesh(srcIdx)
	if err != nil {
		return err
	}
	p.meshMap[srcIdx] = p.m.MakeMesh()
	p.meshSource = append(p.meshSource, mesh)

	mtl := mesh.MaterialIndex
	if _, ok := p.mtlMap[mtl]; ok {
		return nil
	}
	if mtl < 0 || mtl >= p.src.NumMaterials() {
		return expectf("mesh %q: material %d out of range [0,%d)", mesh.Name, mtl, p.src.NumMaterials())
	}
	p.mtlMap[mtl] = p.m.MakeMaterial()
	p.mtlSource = append(p.mtlSource, mtl)
	return nil
}
