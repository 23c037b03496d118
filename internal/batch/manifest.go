package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one source file in the output manifest.
type ManifestEntry struct {
	Source string   `json:"source"`
	Models []string `json:"models,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Manifest is the content of manifest.json.
type Manifest struct {
	Files     []ManifestEntry `json:"files"`
	Materials []string        `json:"materials,omitempty"`
	Textures  []string        `json:"textures,omitempty"`
	Missing   []string        `json:"missing_textures,omitempty"`
}

// NewManifest lists results with sources relative to inputDir.
func NewManifest(inputDir string, results []Result) *Manifest {
	m := &Manifest{Files: make([]ManifestEntry, len(results))}
	for i, r := range results {
		src := r.File
		if rel, err := filepath.Rel(inputDir, r.File); err == nil {
			src = filepath.ToSlash(rel)
		}
		m.Files[i] = ManifestEntry{Source: src, Models: r.Models, Error: r.Error}
	}
	return m
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
