package importer

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"

	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

func quiet(settings Settings) *Importer {
	return New(settings, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func triangle(name string, material int) *scene.Mesh {
	return &scene.Mesh{
		Name:          name,
		MaterialIndex: material,
		Positions:     []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}},
		UVs:           []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:         [][]uint32{{0, 1, 2}},
	}
}

func material(name string) *scene.Material {
	return &scene.Material{Name: name, Properties: map[string]any{}, Textures: map[scene.TextureType]string{}}
}

func f32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func i32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off:]))
}
