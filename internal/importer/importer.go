// Package importer converts a scene.Source into a model.Model.
//
// An import runs in one synchronous pass: discovery allocates nodes,
// meshes and materials; materials and meshes are filled; nodes receive
// their transforms and attachments; animations and collision geometry
// come last. Any structural problem aborts the whole import with an error
// wrapping ErrExpectation and no model is returned.
package importer

import (
	"log/slog"
	"path"
	"strings"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrExpectation marks a source scene that violates an import precondition.
var ErrExpectation = errors.New("import expectation failed")

func expectf(format string, args ...any) error {
	return errors.Wrapf(ErrExpectation, format, args...)
}

// NoEnforcedRoot imports the whole scene starting at its root.
const NoEnforcedRoot = -1

// Settings control optional parts of an import.
type Settings struct {
	ExportAnimations bool
	ReduceKeyFrames  bool
	Relocation       RelocationPolicy
}

func DefaultSettings() Settings {
	return Settings{ExportAnimations: true, Relocation: KeepRelative{}}
}

// Importer runs imports with fixed settings. Each Parse call keeps its
// working state to itself, so one Importer may serve concurrent calls as
// long as they use distinct AdditionalResults.
type Importer struct {
	settings Settings
	log      *slog.Logger
}

// New returns an importer. A nil logger means slog.Default().
func New(settings Settings, logger *slog.Logger) *Importer {
	if settings.Relocation == nil {
		settings.Relocation = KeepRelative{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{settings: settings, log: logger}
}

// Parse imports the sub-tree of src rooted at enforcedRoot, or the whole
// scene for NoEnforcedRoot. When a sub-tree is imported, skinning and
// animations are skipped and the root translation is reset to zero.
//
// Materials and textures discovered on the way are merged into add only
// when the import succeeds. Materials whose asset name is already in add
// are not re-resolved.
func (im *Importer) Parse(add *AdditionalResult, materialsPrefix string, src scene.Source, enforcedRoot int) (*model.Model, error) {
	if add == nil {
		add = NewAdditionalResult()
	}
	p := newParser(im, add, materialsPrefix, src)
	m, err := p.run(enforcedRoot)
	if err != nil {
		return nil, err
	}
	add.Merge(p.add)
	return m, nil
}

// Parse imports src with a throwaway Importer.
func Parse(add *AdditionalResult, materialsPrefix string, src scene.Source, enforcedRoot int, settings Settings) (*model.Model, error) {
	return New(settings, nil).Parse(add, materialsPrefix, src, enforcedRoot)
}

type parser struct {
	src      scene.Source
	settings Settings
	log      *slog.Logger
	prior    *AdditionalResult
	add      *AdditionalResult
	prefix   string
	m        *model.Model
	skinning bool

	nodeMap    map[int]int // source node -> model node
	nodeSource []int       // model node -> source node
	meshMap    map[int]int
	meshSource []*scene.Mesh // model mesh -> source mesh
	mtlMap     map[int]int
	mtlSource  []int

	collision []collisionInstance
}

func newParser(im *Importer, prior *AdditionalResult, prefix string, src scene.Source) *parser {
	return &parser{
		src:      src,
		settings: im.settings,
		log:      im.log,
		prior:    prior,
		add:      NewAdditionalResult(),
		prefix:   prefix,
		m:        model.New(),
		nodeMap:  map[int]int{},
		meshMap:  map[int]int{},
		mtlMap:   map[int]int{},
	}
}

func (p *parser) run(enforcedRoot int) (*model.Model, error) {
	if p.src.NumNodes() == 0 {
		return nil, expectf("scene has no nodes")
	}
	root := enforcedRoot
	if root == NoEnforcedRoot {
		root = p.src.Root()
	}
	p.skinning = enforcedRoot == NoEnforcedRoot

	rootIdx, err := p.discover(root, mgl32.Ident4())
	if err != nil {
		return nil, err
	}
	p.m.RootNode = rootIdx
	p.log.Debug("discovered scene",
		"nodes", len(p.m.Nodes), "meshes", len(p.m.Meshes), "materials", len(p.m.Materials))

	p.importMaterials()
	for i, src := range p.meshSource {
		if err := p.importMesh(p.m.Meshes[i], src); err != nil {
			return nil, err
		}
	}
	p.importNodes()

	if enforcedRoot == NoEnforcedRoot && p.settings.ExportAnimations {
		if err := p.importAnimations(); err != nil {
			return nil, err
		}
	}

	correction := mgl32.Ident4()
	if enforcedRoot != NoEnforcedRoot {
		rootNode := p.m.Nodes[p.m.RootNode]
		t := rootNode.LocalTransform.Position
		rootNode.LocalTransform.Position = mgl32.Vec3{}
		correction = mgl32.Translate3D(-t[0], -t[1], -t[2])
	}
	if err := p.importCollision(correction); err != nil {
		return nil, err
	}
	return p.m, nil
}

// RelocationPolicy maps a source texture reference to the path the asset
// stage will write it to, relative to the output directory.
type RelocationPolicy interface {
	Relocate(ref string) string
}

// KeepRelative keeps the reference's relative directory structure.
// References that are absolute or leave their directory are flattened.
type KeepRelative struct{}

func (KeepRelative) Relocate(ref string) string {
	p := path.Clean(strings.ReplaceAll(ref, "\\", "/"))
	if path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") || (len(p) > 1 && p[1] == ':') {
		return path.Base(p)
	}
	return p
}

// Flatten puts every texture directly into Dir.
type Flatten struct {
	Dir string
}

func (f Flatten) Relocate(ref string) string {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if f.Dir == "" {
		return base
	}
	return path.Join(f.Dir, base)
}
