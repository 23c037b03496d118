package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Material property keys.
const (
	KeyBaseColor         = "$clr.base"
	KeyDiffuseColor      = "$clr.diffuse"
	KeyMetallic          = "$mat.metallicFactor"
	KeyRoughness         = "$mat.roughnessFactor"
	KeyEmissiveColor     = "$clr.emissive"
	KeyEmissiveIntensity = "$mat.emissiveIntensity"
)

// TextureType names a texture slot.
type TextureType int

const (
	TextureBaseColor TextureType = iota
	TextureDiffuse
	TextureMetalness
	TextureRoughness
	TextureEmissive
	TextureNormals
)

var textureTypeNames = [...]string{
	TextureBaseColor: "base_color",
	TextureDiffuse:   "diffuse",
	TextureMetalness: "metalness",
	TextureRoughness: "roughness",
	TextureEmissive:  "emissive",
	TextureNormals:   "normals",
}

func (t TextureType) String() string {
	if t < 0 || int(t) >= len(textureTypeNames) {
		return "unknown"
	}
	return textureTypeNames[t]
}

// Material is a property bag plus texture slots.
// Colors are stored as mgl32.Vec4 or mgl32.Vec3, scalars as float32.
type Material struct {
	Name       string
	Properties map[string]any
	Textures   map[TextureType]string
}

// Color returns the color stored under key. Three-component colors get alpha 1.
func (m *Material) Color(key string) (mgl32.Vec4, bool) {
	switch v := m.Properties[key].(type) {
	case mgl32.Vec4:
		return v, true
	case mgl32.Vec3:
		return v.Vec4(1), true
	}
	return mgl32.Vec4{}, false
}

// Float returns the scalar stored under key.
func (m *Material) Float(key string) (float32, bool) {
	switch v := m.Properties[key].(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	}
	return 0, false
}

// Texture returns the reference in slot t, if any.
func (m *Material) Texture(t TextureType) (string, bool) {
	ref, ok := m.Textures[t]
	if !ok || ref == "" {
		return "", false
	}
	return ref, true
}
