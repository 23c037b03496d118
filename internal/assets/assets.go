// Package assets writes the side files of an import: material assets and
// the textures they reference.
package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mdlconv/internal/importer"
	"mdlconv/internal/model"
	"mdlconv/internal/texture"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Format selects how textures are written.
type Format string

const (
	// FormatKeep writes the source image bytes unchanged. The extension
	// follows the actual image data.
	FormatKeep Format = "keep"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts "", "keep", "png" and "webp".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatKeep:
		return FormatKeep, nil
	case FormatPNG, FormatWebP:
		return f, nil
	}
	return "", fmt.Errorf("assets: unknown texture format %q", s)
}

const jpegQuality = 90

// Options configure Export.
type Options struct {
	OutDir string
	// Textures finds and decodes source textures.
	Textures *texture.Cache
	Format   Format
	// MaxSize bounds the larger texture side; 0 disables resizing.
	MaxSize int
	Log     *slog.Logger
}

// Report lists what Export produced. Paths are relative to OutDir.
type Report struct {
	Materials []string
	// Textures maps a relocated texture path to the file written for it.
	Textures map[string]string
	// Missing lists source references that could not be found.
	Missing []string
}

// mtlFile is the on-disk material asset.
type mtlFile struct {
	GUID string            `json:"guid"`
	Name string            `json:"name"`
	PBR  model.PBRSettings `json:"pbr"`
}

type exporter struct {
	opts Options
	rep  *Report
}

// Export writes every texture and material of add below opts.OutDir.
// Textures come first so materials can point at the files actually written.
func Export(add *importer.AdditionalResult, opts Options) (*Report, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Format == "" {
		opts.Format = FormatKeep
	}
	e := &exporter{opts: opts, rep: &Report{Textures: map[string]string{}}}

	for _, src := range add.TexturesToCopy() {
		if err := e.copyTexture(src, add.TextureToCopy[src]); err != nil {
			return e.rep, err
		}
	}
	for _, rel := range add.EmbeddedTextures() {
		data := add.TexturesToCreate[rel]
		ext := strings.ToLower(path.Ext(rel))
		if sniffed := texture.Sniff(data); sniffed != "" {
			ext = "." + sniffed
		}
		if err := e.writeTexture(rel, data, ext); err != nil {
			return e.rep, err
		}
	}
	for _, name := range add.MaterialAssets() {
		if err := e.writeMaterial(name, add.MtlsToCreate[name]); err != nil {
			return e.rep, err
		}
	}
	return e.rep, nil
}

func (e *exporter) copyTexture(src, rel string) error {
	if e.opts.Textures == nil {
		e.rep.Missing = append(e.rep.Missing, src)
		return nil
	}
	p, ok := e.opts.Textures.Index().ResolvePath(src)
	if !ok {
		e.opts.Log.Warn("texture not found", "ref", src)
		e.rep.Missing = append(e.rep.Missing, src)
		return nil
	}
	data, err := texture.ReadPayload(p)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	return e.writeTexture(rel, data, texture.PayloadExt(filepath.Ext(p)))
}

// writeTexture stores data, whose image format is srcExt, at rel with the
// extension the output format demands.
func (e *exporter) writeTexture(rel string, data []byte, srcExt string) error {
	srcExt = canonicalExt(srcExt)
	targetExt := srcExt
	switch e.opts.Format {
	case FormatPNG:
		targetExt = ".png"
	case FormatWebP:
		targetExt = ".webp"
	}

	out := data
	if targetExt != srcExt || e.opts.MaxSize > 0 {
		img, err := texture.Decode(data, srcExt)
		if err != nil {
			e.opts.Log.Warn("texture kept as is, cannot decode", "path", rel, "err", err)
			targetExt = srcExt
		} else if resized := e.fit(img); resized != img || targetExt != srcExt {
			if !canEncode(targetExt) {
				targetExt = ".png"
			}
			if out, err = encode(resized, targetExt); err != nil {
				return fmt.Errorf("assets: encode %s: %w", rel, err)
			}
		}
	}

	final := strings.TrimSuffix(rel, path.Ext(rel)) + targetExt
	dst, err := e.target(final)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if err := os.WriteFile(dst, out, 0644); err != nil {
		return fmt.Errorf("assets: write %s: %w", dst, err)
	}
	e.rep.Textures[rel] = final
	e.opts.Log.Debug("texture written", "path", final, "bytes", len(out))
	return nil
}

func (e *exporter) writeMaterial(name string, pbr model.PBRSettings) error {
	for _, tex := range []*string{
		&pbr.DiffuseTexture, &pbr.EmissionTexture, &pbr.NormalTexture,
		&pbr.MetallicTexture, &pbr.RoughnessTexture,
	} {
		if final, ok := e.rep.Textures[*tex]; ok {
			*tex = final
		}
	}

	data, err := json.MarshalIndent(mtlFile{
		GUID: model.AssetID(name).String(),
		Name: strings.TrimSuffix(name, path.Ext(name)),
		PBR:  pbr,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("assets: encode %s: %w", name, err)
	}
	dst, err := e.target(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("assets: write %s: %w", dst, err)
	}
	e.rep.Materials = append(e.rep.Materials, name)
	return nil
}

// target maps a relative output path into OutDir, refusing escapes.
func (e *exporter) target(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("assets: refusing to write outside the output directory: %s", rel)
	}
	return filepath.Join(e.opts.OutDir, local), nil
}

// fit scales img down so its larger side is at most MaxSize.
func (e *exporter) fit(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if e.opts.MaxSize <= 0 || longest <= e.opts.MaxSize {
		return img
	}
	w := max(1, b.Dx()*e.opts.MaxSize/longest)
	h := max(1, b.Dy()*e.opts.MaxSize/longest)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func canonicalExt(ext string) string {
	switch ext = strings.ToLower(ext); ext {
	case ".jpeg":
		return ".jpg"
	case ".tif":
		return ".tiff"
	}
	return ext
}

func canEncode(ext string) bool {
	return ext == ".webp" || ext == ".jpg" || ext == ".png"
}

func encode(img image.Image, ext string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch ext {
	case ".webp":
		err = nativewebp.Encode(&buf, img, nil)
	case ".jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case ".png":
		err = png.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("no encoder for %s", ext)
	}
	return buf.Bytes(), err
}
