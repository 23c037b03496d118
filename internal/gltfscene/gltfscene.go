// Package gltfscene exposes glTF 2.0 and GLB documents as a scene.Source.
package gltfscene

import (
	"fmt"
	"io"

	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// Options tune the conversion.
type Options struct {
	// FlipV stores 1-v instead of v for texture coordinates.
	FlipV bool
}

// Open reads a .gltf or .glb file with its external buffers.
func Open(path string, opts Options) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf: open %s: %w", path, err)
	}
	return New(doc, opts)
}

// Decode reads a self-contained document (GLB or embedded buffers) from r.
func Decode(r io.Reader, opts Options) (*scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("gltf: decode: %w", err)
	}
	return New(doc, opts)
}

type converter struct {
	doc  *gltf.Document
	opts Options
	out  *scene.Scene

	// parent[i] is the parent of document node i, -1 for roots
	parent []int
	// names[i] is the unique scene name of document node i
	names []string
	// primitives of glTF mesh m rendered with skin s (-1 for none)
	prims           map[[2]int][]int
	defaultMaterial int
}

// New converts an in-memory document. Node indices match the document;
// a synthetic root is appended when the scene has several root nodes.
func New(doc *gltf.Document, opts Options) (*scene.Scene, error) {
	c := &converter{
		doc:             doc,
		opts:            opts,
		out:             &scene.Scene{},
		prims:           map[[2]int][]int{},
		defaultMaterial: -1,
	}
	if err := c.convert(); err != nil {
		return nil, err
	}
	return c.out, nil
}

func (c *converter) convert() error {
	if err := c.checkHierarchy(); err != nil {
		return err
	}
	if err := c.convertMaterials(); err != nil {
		return err
	}

	names := scene.UniqueNames{}
	c.names = make([]string, len(c.doc.Nodes))
	for i, gn := range c.doc.Nodes {
		c.names[i] = names.Take(nodeName(gn, i))
	}
	for i, gn := range c.doc.Nodes {
		n := &scene.Node{
			Name:      c.names[i],
			Transform: nodeTransform(gn),
			Children:  append([]int(nil), gn.Children...),
		}
		c.out.Nodes = append(c.out.Nodes, n)
	}
	for i, gn := range c.doc.Nodes {
		if gn.Mesh == nil {
			continue
		}
		skin := -1
		if gn.Skin != nil {
			skin = *gn.Skin
		}
		prims, err := c.meshPrimitives(*gn.Mesh, skin)
		if err != nil {
			return err
		}
		c.out.Nodes[i].Meshes = prims
	}

	roots := c.sceneRoots()
	seen := map[int]bool{}
	for _, r := range roots {
		if r < 0 || r >= len(c.out.Nodes) {
			return fmt.Errorf("gltf: scene root %d out of range", r)
		}
		if c.parent[r] >= 0 {
			return fmt.Errorf("gltf: scene root %d is a child of node %d", r, c.parent[r])
		}
		if seen[r] {
			return fmt.Errorf("gltf: scene root %d listed twice", r)
		}
		seen[r] = true
	}
	switch len(roots) {
	case 0:
		if len(c.out.Nodes) == 0 {
			return fmt.Errorf("gltf: document has no nodes")
		}
		c.out.RootIndex = 0
	case 1:
		c.out.RootIndex = roots[0]
	default:
		c.out.Nodes = append(c.out.Nodes, &scene.Node{
			Name:      names.Take("root"),
			Transform: mgl32.Ident4(),
			Children:  roots,
		})
		c.out.RootIndex = len(c.out.Nodes) - 1
	}

	return c.convertAnimations()
}

// checkHierarchy rejects child references out of range, nodes with more
// than one parent and cycles.
func (c *converter) checkHierarchy() error {
	c.parent = make([]int, len(c.doc.Nodes))
	parent := c.parent
	for i := range parent {
		parent[i] = -1
	}
	for i, gn := range c.doc.Nodes {
		for _, ch := range gn.Children {
			if ch < 0 || ch >= len(c.doc.Nodes) {
				return fmt.Errorf("gltf: node %d child %d out of range", i, ch)
			}
			if parent[ch] >= 0 {
				return fmt.Errorf("gltf: node %d has parents %d and %d", ch, parent[ch], i)
			}
			parent[ch] = i
		}
	}
	// With at most one parent each, a cycle is a parent chain that
	// returns to its start.
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(c.doc.Nodes))
	for i := range c.doc.Nodes {
		var chain []int
		n := i
		for n >= 0 && state[n] == unvisited {
			state[n] = visiting
			chain = append(chain, n)
			n = parent[n]
		}
		if n >= 0 && state[n] == visiting {
			return fmt.Errorf("gltf: node %d is its own ancestor", n)
		}
		for _, v := range chain {
			state[v] = done
		}
	}
	return nil
}

// sceneRoots returns the root nodes of the default scene, or every
// parentless node when the document names no scene.
func (c *converter) sceneRoots() []int {
	if c.doc.Scene != nil && *c.doc.Scene < len(c.doc.Scenes) {
		return append([]int(nil), c.doc.Scenes[*c.doc.Scene].Nodes...)
	}
	if len(c.doc.Scenes) > 0 && len(c.doc.Scenes[0].Nodes) > 0 {
		return append([]int(nil), c.doc.Scenes[0].Nodes...)
	}
	hasParent := make([]bool, len(c.doc.Nodes))
	for _, gn := range c.doc.Nodes {
		for _, ch := range gn.Children {
			if ch < len(hasParent) {
				hasParent[ch] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeName gives unnamed nodes a stable name so animation channels can
// find them.
func nodeName(gn *gltf.Node, i int) string {
	if gn.Name != "" {
		return gn.Name
	}
	return fmt.Sprintf("node_%d", i)
}

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func nodeTransform(gn *gltf.Node) mgl32.Mat4 {
	if m := gn.MatrixOrDefault(); m != identity {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault()
	s := gn.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}
