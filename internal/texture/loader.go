// Package texture finds and decodes the texture files that imported
// materials reference.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Header sizes of the MU Online texture containers.
const (
	ozjHeader = 24 // + JPEG data
	oztHeader = 4  // + TGA data
)

// Supported reports whether ext (with dot, any case) is a texture format
// this package can read.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".ozj", ".ozt", ".jpg", ".jpeg", ".png", ".tga", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// PayloadExt returns the extension of the image data inside a file with
// extension ext: ".jpg" for OZJ, ".tga" for OZT, ext itself otherwise.
func PayloadExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".ozj":
		return ".jpg"
	case ".ozt":
		return ".tga"
	}
	return strings.ToLower(ext)
}

// ReadPayload reads a texture file and strips the OZJ / OZT container
// header, returning plain image file bytes.
func ReadPayload(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ozj":
		if len(raw) <= ozjHeader {
			return nil, fmt.Errorf("texture: OZJ too short: %s", path)
		}
		return raw[ozjHeader:], nil
	case ".ozt":
		if len(raw) <= oztHeader {
			return nil, fmt.Errorf("texture: OZT too short: %s", path)
		}
		return raw[oztHeader:], nil
	}
	return raw, nil
}

// LoadTexture reads a texture file and returns an NRGBA image.
func LoadTexture(path string) (*image.NRGBA, error) {
	if !Supported(filepath.Ext(path)) {
		return nil, fmt.Errorf("texture: unknown extension: %s", filepath.Ext(path))
	}
	data, err := ReadPayload(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data, PayloadExt(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes image file bytes. ext selects the decoder; TGA has no
// magic number, so it is only used when ext says so. Unknown extensions
// are sniffed.
func Decode(data []byte, ext string) (*image.NRGBA, error) {
	r := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "tga":
		img, err = tga.Decode(r)
	case "png":
		img, err = png.Decode(r)
	case "jpg", "jpeg":
		img, err = jpeg.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	case "tif", "tiff":
		img, err = tiff.Decode(r)
	case "webp":
		img, err = webp.Decode(r)
	default:
		if sniffed := Sniff(data); sniffed != "" {
			return Decode(data, sniffed)
		}
		return nil, fmt.Errorf("texture: unrecognized image data")
	}
	if err != nil {
		return nil, err
	}
	return toNRGBA(img), nil
}

// Sniff guesses the extension (without dot) of image file bytes from
// their magic number. TGA is never guessed.
func Sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		return "jpg"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	}
	return ""
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
