package model

import "github.com/go-gl/mathgl/mgl32"

// PBRSettings are the resolved parameters of a metallic/roughness
// material. Texture fields hold output-relative paths, empty when unset.
type PBRSettings struct {
	DiffuseColor     mgl32.Vec4 `json:"diffuseColor"`
	EmissionColor    mgl32.Vec4 `json:"emissionColor"`
	Metallic         float32    `json:"metallic"`
	Roughness        float32    `json:"roughness"`
	DiffuseTexture   string     `json:"diffuseTexture,omitempty"`
	EmissionTexture  string     `json:"emissionTexture,omitempty"`
	NormalTexture    string     `json:"normalTexture,omitempty"`
	MetallicTexture  string     `json:"metallicTexture,omitempty"`
	RoughnessTexture string     `json:"roughnessTexture,omitempty"`
}

// DefaultPBRSettings is white, non-metallic and fully rough.
func DefaultPBRSettings() PBRSettings {
	return PBRSettings{
		DiffuseColor:  mgl32.Vec4{1, 1, 1, 1},
		EmissionColor: mgl32.Vec4{0, 0, 0, 0},
		Metallic:      0,
		Roughness:     1,
	}
}

// Material references a material asset by name.
type Material struct {
	Name      string
	AssetName string
	PBR       PBRSettings
}
