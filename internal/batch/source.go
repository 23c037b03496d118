package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mdlconv/internal/bmd"
	"mdlconv/internal/gltfscene"
	"mdlconv/internal/scene"
)

// SourceOptions configure the format adapters.
type SourceOptions struct {
	GLTF    gltfscene.Options
	BMD     bmd.Options
	BMDKeys bmd.Keys
}

// Extensions lists the source file types OpenSource understands.
var Extensions = []string{".gltf", ".glb", ".bmd"}

// IsSource reports whether path has a supported extension.
func IsSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OpenSource loads a source scene with the adapter its extension selects.
func OpenSource(path string, opts SourceOptions) (scene.Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return gltfscene.Open(path, opts.GLTF)
	case ".bmd":
		m, err := bmd.Parse(path, opts.BMDKeys)
		if err != nil {
			return nil, err
		}
		return bmd.NewSource(m, opts.BMD)
	}
	return nil, fmt.Errorf("batch: unsupported source file %s", path)
}

// FindSources lists the supported files below dir, sorted.
func FindSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSource(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
