package importer

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/pkg/errors"
)

// Part is one model produced by ImportAsMultiple.
type Part struct {
	Model    *model.Model
	FileName string
}

// ImportAsMultiple imports every child of the scene root as its own model.
// File names are derived from sourceFile: "dir/tree.fbx" with a child
// "Oak" proposes "tree.Oak.mdl". Children that fail to import are left
// out; their errors are joined into the returned error.
func (im *Importer) ImportAsMultiple(add *AdditionalResult, materialsPrefix string, src scene.Source, sourceFile string) ([]Part, error) {
	if src.NumNodes() == 0 {
		return nil, expectf("scene has no nodes")
	}
	base := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	used := map[string]int{}

	var (
		parts []Part
		errs  []error
	)
	for _, child := range src.Node(src.Root()).Children {
		name := src.Node(child).Name
		m, err := im.Parse(add, materialsPrefix, src, child)
		if err != nil {
			im.log.Warn("skipping sub-model", "node", name, "err", err)
			errs = append(errs, errors.Wrapf(err, "node %q", name))
			continue
		}

		stem := base + "." + sanitizeFileName(name)
		if n := used[stem]; n > 0 {
			used[stem] = n + 1
			stem = fmt.Sprintf("%s_%d", stem, n)
		} else {
			used[stem] = 1
		}
		parts = append(parts, Part{Model: m, FileName: stem + ".mdl"})
	}
	return parts, stderrors.Join(errs...)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
