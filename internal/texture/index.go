package texture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Index maps lowercase texture stems to filesystem paths.
// OZT files take priority over OZJ for the same stem (alpha channel).
type Index struct {
	root    string
	entries map[string][]string // stem.lower() → full paths
}

// BuildIndex scans root and its subdirectories for texture files.
func BuildIndex(root string) *Index {
	idx := &Index{root: root, entries: make(map[string][]string)}

	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !Supported(filepath.Ext(path)) {
			return nil
		}
		stem := stemOf(path)
		idx.entries[stem] = append(idx.entries[stem], path)
		return nil
	})
	for _, paths := range idx.entries {
		sort.Strings(paths)
	}
	return idx
}

func stemOf(name string) string {
	base := filepath.Base(name)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ResolvePath returns the filesystem path for a texture reference, or
// ("", false). A reference that names an existing file under the root
// wins; otherwise the file with the same stem is used, preferring the
// referenced extension, then OZT over OZJ.
func (idx *Index) ResolvePath(texName string) (string, bool) {
	// Strip path prefix (e.g., "Monsters\\texture\\foo.jpg" → "foo")
	texName = strings.ReplaceAll(texName, "\\", "/")
	if !filepath.IsAbs(texName) {
		direct := filepath.Join(idx.root, filepath.FromSlash(texName))
		if info, err := os.Stat(direct); err == nil && !info.IsDir() {
			return direct, true
		}
	}

	paths := idx.entries[stemOf(texName)]
	if len(paths) == 0 {
		return "", false
	}
	want := strings.ToLower(filepath.Ext(texName))
	best, bestRank := "", -1
	for _, p := range paths {
		rank := 0
		switch ext := strings.ToLower(filepath.Ext(p)); {
		case ext == want:
			rank = 3
		case ext == ".ozt":
			rank = 2
		case ext == ".ozj":
			rank = 1
		}
		if rank > bestRank {
			best, bestRank = p, rank
		}
	}
	return best, true
}

// Len returns the number of indexed texture stems.
func (idx *Index) Len() int {
	return len(idx.entries)
}
