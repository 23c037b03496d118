package scene

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is an in-memory Source. Adapters fill it; tests build it directly.
type Scene struct {
	RootIndex  int
	Nodes      []*Node
	Meshes     []*Mesh
	Materials  []*Material
	Animations []*Animation
	Embedded   []*EmbeddedTexture
}

var _ Source = (*Scene)(nil)

func (s *Scene) Root() int         { return s.RootIndex }
func (s *Scene) NumNodes() int     { return len(s.Nodes) }
func (s *Scene) Node(i int) *Node  { return s.Nodes[i] }
func (s *Scene) NumMeshes() int    { return len(s.Meshes) }
func (s *Scene) NumMaterials() int { return len(s.Materials) }
func (s *Scene) NumAnimations() int {
	return len(s.Animations)
}

func (s *Scene) Mesh(i int) (*Mesh, error) {
	if i < 0 || i >= len(s.Meshes) {
		return nil, fmt.Errorf("scene: mesh %d out of range [0,%d)", i, len(s.Meshes))
	}
	return s.Meshes[i], nil
}

func (s *Scene) Material(i int) *Material {
	if i < 0 || i >= len(s.Materials) {
		return nil
	}
	return s.Materials[i]
}

func (s *Scene) Animation(i int) (*Animation, error) {
	if i < 0 || i >= len(s.Animations) {
		return nil, fmt.Errorf("scene: animation %d out of range [0,%d)", i, len(s.Animations))
	}
	return s.Animations[i], nil
}

// EmbeddedTexture resolves references of the form "*<n>".
func (s *Scene) EmbeddedTexture(ref string) (*EmbeddedTexture, bool) {
	i, ok := EmbeddedIndex(ref)
	if !ok || i >= len(s.Embedded) || s.Embedded[i] == nil {
		return nil, false
	}
	return s.Embedded[i], true
}

// EmbeddedRef formats the reference for embedded texture i.
func EmbeddedRef(i int) string {
	return "*" + strconv.Itoa(i)
}

// EmbeddedIndex parses an embedded texture reference.
func EmbeddedIndex(ref string) (int, bool) {
	if !strings.HasPrefix(ref, "*") {
		return 0, false
	}
	i, err := strconv.Atoi(ref[1:])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Builder assembles a Scene node by node.
type Builder struct {
	s *Scene
}

// NewBuilder starts a scene whose root node is named rootName.
func NewBuilder(rootName string) *Builder {
	b := &Builder{s: &Scene{}}
	b.s.RootIndex = b.newNode(rootName, mgl32.Ident4())
	return b
}

func (b *Builder) newNode(name string, transform mgl32.Mat4) int {
	b.s.Nodes = append(b.s.Nodes, &Node{Name: name, Transform: transform})
	return len(b.s.Nodes) - 1
}

// Root returns the index of the root node.
func (b *Builder) Root() int { return b.s.RootIndex }

// AddNode appends a child of parent and returns its index.
func (b *Builder) AddNode(parent int, name string, transform mgl32.Mat4) int {
	i := b.newNode(name, transform)
	b.s.Nodes[parent].Children = append(b.s.Nodes[parent].Children, i)
	return i
}

// SetTransform replaces the local transform of node i.
func (b *Builder) SetTransform(i int, transform mgl32.Mat4) {
	b.s.Nodes[i].Transform = transform
}

func (b *Builder) AddMesh(m *Mesh) int {
	b.s.Meshes = append(b.s.Meshes, m)
	return len(b.s.Meshes) - 1
}

// Attach makes node reference mesh.
func (b *Builder) Attach(node, mesh int) {
	b.s.Nodes[node].Meshes = append(b.s.Nodes[node].Meshes, mesh)
}

func (b *Builder) AddMaterial(m *Material) int {
	b.s.Materials = append(b.s.Materials, m)
	return len(b.s.Materials) - 1
}

func (b *Builder) AddAnimation(a *Animation) int {
	b.s.Animations = append(b.s.Animations, a)
	return len(b.s.Animations) - 1
}

// AddEmbedded stores an embedded texture and returns its reference.
func (b *Builder) AddEmbedded(t *EmbeddedTexture) string {
	b.s.Embedded = append(b.s.Embedded, t)
	return EmbeddedRef(len(b.s.Embedded) - 1)
}

// Scene returns the built scene. The builder must not be used afterwards.
func (b *Builder) Scene() *Scene {
	return b.s
}
