package importer

import (
	"mdlconv/internal/model"
)

// importNodes fills the transforms and mesh attachments of every
// discovered node. Collision nodes keep their place in the tree but carry
// no attachments.
func (p *parser) importNodes() {
	for idx, srcIdx := range p.nodeSource {
		sn := p.src.Node(srcIdx)
		node := p.m.Nodes[idx]
		node.LocalTransform = model.TransformFromMat4(sn.Transform)

		if collisionKindOf(sn.Name) != collisionNone {
			continue
		}
		for _, mi := range sn.Meshes {
			meshIdx := p.meshMap[mi]
			node.MeshAttachments = append(node.MeshAttachments, model.MeshAttachment{
				MeshIndex:     meshIdx,
				MaterialIndex: p.mtlMap[p.meshSource[meshIdx].MaterialIndex],
			})
		}
	}
}
