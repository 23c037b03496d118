package importer

import (
	"sort"

	"mdlconv/internal/model"
)

// AdditionalResult collects what the asset stage has to produce next to
// the imported models.
type AdditionalResult struct {
	// MtlsToCreate maps a material asset name to its parameters.
	MtlsToCreate map[string]model.PBRSettings
	// TextureToCopy maps a source texture reference to its relocated path.
	TextureToCopy map[string]string
	// TexturesToCreate maps a relocated path to embedded image bytes.
	TexturesToCreate map[string][]byte
}

func NewAdditionalResult() *AdditionalResult {
	return &AdditionalResult{
		MtlsToCreate:     map[string]model.PBRSettings{},
		TextureToCopy:    map[string]string{},
		TexturesToCreate: map[string][]byte{},
	}
}

// Merge copies every entry of o into r. Entries of o win.
func (r *AdditionalResult) Merge(o *AdditionalResult) {
	for k, v := range o.MtlsToCreate {
		r.MtlsToCreate[k] = v
	}
	for k, v := range o.TextureToCopy {
		r.TextureToCopy[k] = v
	}
	for k, v := range o.TexturesToCreate {
		r.TexturesToCreate[k] = v
	}
}

// MaterialAssets returns the material asset names in sorted order.
func (r *AdditionalResult) MaterialAssets() []string {
	return sortedKeys(r.MtlsToCreate)
}

// TexturesToCopy returns the source texture references in sorted order.
func (r *AdditionalResult) TexturesToCopy() []string {
	return sortedKeys(r.TextureToCopy)
}

// EmbeddedTextures returns the relocated paths of embedded textures in sorted order.
func (r *AdditionalResult) EmbeddedTextures() []string {
	return sortedKeys(r.TexturesToCreate)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
