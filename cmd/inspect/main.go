package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mdlconv/internal/batch"
	"mdlconv/internal/bmd"
	"mdlconv/internal/importer"
	"mdlconv/internal/mdl"
	"mdlconv/internal/model"
	"mdlconv/internal/scene"
)

func main() {
	raw := flag.Bool("scene", false, "Also print the source scene graph")
	flag.Parse()

	opts := batch.SourceOptions{BMD: bmd.Options{FPS: bmd.DefaultFPS, ZUp: true}, BMDKeys: bmd.DefaultKeys()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	failed := false
	for _, arg := range flag.Args() {
		fmt.Printf("\n=== %s ===\n", arg)
		if strings.EqualFold(filepath.Ext(arg), ".mdl") {
			f, err := mdl.ReadFile(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Read error %s: %v\n", arg, err)
				failed = true
				continue
			}
			fmt.Printf("ID: %s\n", f.ID)
			printModel(f.Model)
			continue
		}

		src, err := batch.OpenSource(arg, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
			failed = true
			continue
		}
		if *raw {
			fmt.Println("--- SOURCE ---")
			printNode(src, src.Root(), 0)
		}

		base := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		add := importer.NewAdditionalResult()
		m, err := importer.New(importer.DefaultSettings(), log).Parse(add, base, src, importer.NoEnforcedRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import error %s: %v\n", arg, err)
			failed = true
			continue
		}
		fmt.Println("--- IMPORTED ---")
		printModel(m)
		for _, ref := range add.TexturesToCopy() {
			fmt.Printf("  texture %s -> %s\n", ref, add.TextureToCopy[ref])
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printNode(src scene.Source, i, depth int) {
	n := src.Node(i)
	fmt.Printf("%s[%d] %s meshes=%v\n", strings.Repeat("  ", depth), i, n.Name, n.Meshes)
	for _, c := range n.Children {
		printNode(src, c, depth+1)
	}
}

func printModel(m *model.Model) {
	fmt.Printf("Nodes: %d, Meshes: %d, Materials: %d, Animations: %d\n",
		len(m.Nodes), len(m.Meshes), len(m.Materials), len(m.Animations))
	printTree(m, m.RootNode, 0)

	for i, mesh := range m.Meshes {
		fmt.Printf("  Mesh[%d] %s: %s verts=%d elements=%d index=%s stride=%d bones=%d\n",
			i, mesh.Name, mesh.Topology, mesh.NumVertices, mesh.NumElements, mesh.IndexFormat, mesh.Stride, len(mesh.Bones))
		if !mesh.AABB.IsEmpty() {
			size := mesh.AABB.Max.Sub(mesh.AABB.Min)
			fmt.Printf("    BBox: min=%.2f max=%.2f size=%.2f x %.2f x %.2f\n",
				mesh.AABB.Min, mesh.AABB.Max, size[0], size[1], size[2])
		}
	}
	for i, mat := range m.Materials {
		fmt.Printf("  Material[%d] %s -> %s diffuse=%q\n", i, mat.Name, mat.AssetName, mat.PBR.DiffuseTexture)
	}
	for i, a := range m.Animations {
		fmt.Printf("  Animation[%d] %s: %.2fs, %d nodes\n", i, a.Name, a.Duration, len(a.PerNode))
	}
	c := m.Collision
	if !c.Empty() {
		fmt.Printf("  Collision: convex=%d concave=%d boxes=%d capsules=%d cylinders=%d spheres=%d\n",
			len(c.ConvexHulls), len(c.ConcaveHulls), len(c.Boxes), len(c.Capsules), len(c.Cylinders), len(c.Spheres))
	}
}

func printTree(m *model.Model, i, depth int) {
	if i < 0 || i >= len(m.Nodes) {
		return
	}
	n := m.Nodes[i]
	fmt.Printf("%s%s pos=%.2f", strings.Repeat("  ", depth+1), n.Name, n.LocalTransform.Position)
	for _, a := range n.MeshAttachments {
		fmt.Printf(" mesh%d/mat%d", a.MeshIndex, a.MaterialIndex)
	}
	fmt.Println()
	for _, c := range n.Children {
		printTree(m, c, depth+1)
	}
}
