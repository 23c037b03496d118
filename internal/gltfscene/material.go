package gltfscene

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const extEmissiveStrength = "KHR_materials_emissive_strength"

func (c *converter) convertMaterials() error {
	c.out.Embedded = make([]*scene.EmbeddedTexture, len(c.doc.Images))
	for i, img := range c.doc.Images {
		tex, err := c.embeddedImage(i, img)
		if err != nil {
			return err
		}
		c.out.Embedded[i] = tex
	}

	for i, gm := range c.doc.Materials {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		mat := &scene.Material{
			Name:       name,
			Properties: map[string]any{},
			Textures:   map[scene.TextureType]string{},
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.Properties[scene.KeyBaseColor] = mgl32.Vec4{float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3])}
			mat.Properties[scene.KeyMetallic] = float32(pbr.MetallicFactorOrDefault())
			mat.Properties[scene.KeyRoughness] = float32(pbr.RoughnessFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				c.setTexture(mat, scene.TextureBaseColor, pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicRoughnessTexture != nil {
				c.setTexture(mat, scene.TextureMetalness, pbr.MetallicRoughnessTexture.Index)
				c.setTexture(mat, scene.TextureRoughness, pbr.MetallicRoughnessTexture.Index)
			}
		}
		if ef := gm.EmissiveFactor; ef != [3]float64{} || gm.EmissiveTexture != nil {
			mat.Properties[scene.KeyEmissiveColor] = mgl32.Vec3{float32(ef[0]), float32(ef[1]), float32(ef[2])}
			if gm.EmissiveTexture != nil {
				c.setTexture(mat, scene.TextureEmissive, gm.EmissiveTexture.Index)
			}
		}
		if s, ok := emissiveStrength(gm); ok {
			mat.Properties[scene.KeyEmissiveIntensity] = s
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			c.setTexture(mat, scene.TextureNormals, *gm.NormalTexture.Index)
		}
		c.out.Materials = append(c.out.Materials, mat)
	}
	return nil
}

// fallbackMaterial returns a plain material for primitives that name none.
func (c *converter) fallbackMaterial() int {
	if c.defaultMaterial < 0 {
		c.out.Materials = append(c.out.Materials, &scene.Material{
			Name:       "default",
			Properties: map[string]any{},
			Textures:   map[scene.TextureType]string{},
		})
		c.defaultMaterial = len(c.out.Materials) - 1
	}
	return c.defaultMaterial
}

// setTexture stores the reference of texture ti: "*<image>" for images
// stored in the document, the unescaped URI otherwise.
func (c *converter) setTexture(mat *scene.Material, slot scene.TextureType, ti int) {
	if ti < 0 || ti >= len(c.doc.Textures) {
		return
	}
	src := c.doc.Textures[ti].Source
	if src == nil || *src >= len(c.doc.Images) {
		return
	}
	if c.out.Embedded[*src] != nil {
		mat.Textures[slot] = scene.EmbeddedRef(*src)
		return
	}
	uri := c.doc.Images[*src].URI
	if u, err := url.PathUnescape(uri); err == nil {
		uri = u
	}
	mat.Textures[slot] = uri
}

// embeddedImage returns nil for images that live in external files.
func (c *converter) embeddedImage(i int, img *gltf.Image) (*scene.EmbeddedTexture, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case img.BufferView != nil:
		if *img.BufferView >= len(c.doc.BufferViews) {
			return nil, fmt.Errorf("gltf: image %d buffer view out of range", i)
		}
		data, err = modeler.ReadBufferView(c.doc, c.doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		data, err = img.MarshalData()
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gltf: image %d: %w", i, err)
	}

	mime := img.MimeType
	if mime == "" && strings.HasPrefix(img.URI, "data:") {
		mime = strings.TrimPrefix(strings.SplitN(img.URI, ";", 2)[0], "data:")
	}
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("image_%d", i)
	}
	return &scene.EmbeddedTexture{Filename: name, FormatHint: formatHint(mime), Data: data}, nil
}

func formatHint(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/ktx2":
		return "ktx2"
	}
	return ""
}

func emissiveStrength(gm *gltf.Material) (float32, bool) {
	raw, ok := gm.Extensions[extEmissiveStrength]
	if !ok {
		return 0, false
	}
	var ext struct {
		EmissiveStrength *float64 `json:"emissiveStrength"`
	}
	var data []byte
	switch v := raw.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return 0, false
		}
	}
	if err := json.Unmarshal(data, &ext); err != nil || ext.EmissiveStrength == nil {
		return 0, false
	}
	return float32(*ext.EmissiveStrength), true
}
