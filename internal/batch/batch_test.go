package batch

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"mdlconv/internal/importer"
	"mdlconv/internal/mdl"
	"mdlconv/internal/model"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGLB(t *testing.T, path string, roots int) {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: pos},
			Material:   gltf.Index(0),
		}},
	}}
	doc.Materials = []*gltf.Material{{Name: "stone"}}
	doc.Scene = gltf.Index(0)
	doc.Scenes = []*gltf.Scene{{}}
	for i := 0; i < roots; i++ {
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "part", Mesh: gltf.Index(0)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, i)
	}
	require.NoError(t, gltf.SaveBinary(doc, path))
}

func testConfig(in, out string) Config {
	return Config{
		InputDir:  in,
		OutputDir: out,
		Settings:  importer.DefaultSettings(),
		Workers:   2,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestIsSource(t *testing.T) {
	assert.True(t, IsSource("a/b/Sword.BMD"))
	assert.True(t, IsSource("x.glb"))
	assert.True(t, IsSource("x.gltf"))
	assert.False(t, IsSource("x.fbx"))
	assert.False(t, IsSource("bmd"))
}

func TestOpenSourceUnsupported(t *testing.T) {
	_, err := OpenSource("model.obj", SourceOptions{})
	assert.Error(t, err)
}

func TestFindSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	for _, name := range []string{"b.glb", "a.bmd", "sub/c.gltf", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	files, err := FindSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.bmd"),
		filepath.Join(dir, "b.glb"),
		filepath.Join(dir, "sub", "c.gltf"),
	}, files)
}

func TestRunConvertsAndReportsFailures(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	good := filepath.Join(in, "rock.glb")
	writeGLB(t, good, 1)
	bad := filepath.Join(in, "broken.bmd")
	require.NoError(t, os.WriteFile(bad, []byte("BMD"), 0644))

	results, add := Run(testConfig(in, out), []string{good, bad})
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.Equal(t, []string{"rock.mdl"}, results[0].Models)
	f, err := mdl.ReadFile(filepath.Join(out, "rock.mdl"))
	require.NoError(t, err)
	assert.Len(t, f.Model.Meshes, 1)

	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.NoFileExists(t, filepath.Join(out, "broken.mdl"))

	// Only the successful file contributes side assets.
	assert.Equal(t, []string{"rock_stone.mtl"}, add.MaterialAssets())
}

func TestRunSplitsRootChildren(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	file := filepath.Join(in, "wall.glb")
	writeGLB(t, file, 2)

	cfg := testConfig(in, out)
	cfg.Split = true
	cfg.MaterialsPrefix = "props"
	results, add := Run(cfg, []string{file})
	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, []string{"wall.part.mdl", "wall.part_1.mdl"}, results[0].Models)
	for _, name := range results[0].Models {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.Equal(t, []string{"props_stone.mtl"}, add.MaterialAssets())
}

func TestRunKeepsSameNamedSourcesApart(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	for _, dir := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(in, dir), 0755))
	}
	files := []string{filepath.Join(in, "a", "rock.glb"), filepath.Join(in, "b", "rock.glb")}
	writeGLB(t, files[0], 1)
	writeGLB(t, files[1], 1)

	results, add := Run(testConfig(in, out), files)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"a/rock.mdl"}, results[0].Models)
	assert.Equal(t, []string{"b/rock.mdl"}, results[1].Models)
	assert.FileExists(t, filepath.Join(out, "a", "rock.mdl"))
	assert.FileExists(t, filepath.Join(out, "b", "rock.mdl"))
	assert.Equal(t, []string{"a/rock_stone.mtl", "b/rock_stone.mtl"}, add.MaterialAssets())

	f, err := mdl.ReadFile(filepath.Join(out, "b", "rock.mdl"))
	require.NoError(t, err)
	assert.Equal(t, model.AssetID("b/rock.mdl"), f.ID)
}

func TestUniqueStems(t *testing.T) {
	in := filepath.Join("data", "models")
	cfg := Config{InputDir: in}
	stems := uniqueStems(cfg, []string{
		filepath.Join(in, "a", "rock.glb"),
		filepath.Join(in, "a", "rock.bmd"),
		filepath.Join(in, "b", "rock.glb"),
		filepath.Join("elsewhere", "rock.gltf"),
	})
	assert.Equal(t, []string{"a/rock", "a/rock_1", "b/rock", "rock"}, stems)

	assert.Equal(t, "rock", stemOf(Config{}, filepath.Join(in, "a", "rock.glb")))
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	results := []Result{
		{File: filepath.Join(dir, "sub", "a.glb"), Models: []string{"a.mdl"}, Success: true},
		{File: filepath.Join(dir, "b.bmd"), Error: "bmd: truncated"},
	}
	m := NewManifest(dir, results)
	m.Materials = []string{"a_stone.mtl"}

	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, WriteManifest(path, m))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "sub/a.glb", got.Files[0].Source)
	assert.Equal(t, []string{"a.mdl"}, got.Files[0].Models)
	assert.Equal(t, "bmd: truncated", got.Files[1].Error)
	assert.Equal(t, []string{"a_stone.mtl"}, got.Materials)
}
