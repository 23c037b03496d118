package importer

import (
	"fmt"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"
)

// AssetName is the material asset file name for a source material.
func AssetName(prefix, materialName string) string {
	return prefix + "_" + materialName + ".mtl"
}

func (p *parser) importMaterials() {
	for i, srcIdx := range p.mtlSource {
		sm := p.src.Material(srcIdx)
		mat := p.m.Materials[i]
		mat.Name = sm.Name
		mat.AssetName = AssetName(p.prefix, sm.Name)

		if existing, ok := p.lookupMaterial(mat.AssetName); ok {
			mat.PBR = existing
			continue
		}
		mat.PBR = p.resolvePBR(sm)
		p.add.MtlsToCreate[mat.AssetName] = mat.PBR
	}
}

func (p *parser) lookupMaterial(assetName string) (model.PBRSettings, bool) {
	if s, ok := p.add.MtlsToCreate[assetName]; ok {
		return s, true
	}
	s, ok := p.prior.MtlsToCreate[assetName]
	return s, ok
}

func (p *parser) resolvePBR(sm *scene.Material) model.PBRSettings {
	s := model.DefaultPBRSettings()

	if c, ok := sm.Color(scene.KeyBaseColor); ok {
		s.DiffuseColor = c
	} else if c, ok := sm.Color(scene.KeyDiffuseColor); ok {
		s.DiffuseColor = c
	}
	if v, ok := sm.Float(scene.KeyMetallic); ok {
		s.Metallic = v
	}
	if v, ok := sm.Float(scene.KeyRoughness); ok {
		s.Roughness = v
	}
	if c, ok := sm.Color(scene.KeyEmissiveColor); ok {
		k := float32(1)
		if v, ok := sm.Float(scene.KeyEmissiveIntensity); ok {
			k = v
		}
		s.EmissionColor = c.Vec3().Mul(k).Vec4(c[3])
	}

	s.DiffuseTexture = p.textureRef(sm, scene.TextureBaseColor, scene.TextureDiffuse)
	s.MetallicTexture = p.textureRef(sm, scene.TextureMetalness)
	s.RoughnessTexture = p.textureRef(sm, scene.TextureRoughness)
	s.EmissionTexture = p.textureRef(sm, scene.TextureEmissive)
	s.NormalTexture = p.textureRef(sm, scene.TextureNormals)
	return s
}

// textureRef resolves the first filled slot and registers the texture for
// the asset stage. It returns the relocated path, or "" when no slot is set.
func (p *parser) textureRef(sm *scene.Material, slots ...scene.TextureType) string {
	for _, slot := range slots {
		ref, ok := sm.Texture(slot)
		if !ok {
			continue
		}

		if ei, embedded := scene.EmbeddedIndex(ref); embedded {
			tex, ok := p.src.EmbeddedTexture(ref)
			if !ok {
				p.log.Warn("missing embedded texture", "material", sm.Name, "slot", slot, "ref", ref)
				continue
			}
			name := tex.Filename
			if name == "" {
				name = fmt.Sprintf("%s_embedded_%d", p.prefix, ei)
			}
			if tex.FormatHint != "" {
				name += "." + tex.FormatHint
			}
			rel := p.settings.Relocation.Relocate(name)
			p.add.TexturesToCreate[rel] = tex.Data
			return rel
		}

		rel := p.settings.Relocation.Relocate(ref)
		p.add.TextureToCopy[ref] = rel
		return rel
	}
	return ""
}
