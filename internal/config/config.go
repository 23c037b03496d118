// Package config loads converter settings from a JSON, TOML or YAML file
// and applies command line overrides.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"mdlconv/internal/assets"
	"mdlconv/internal/bmd"
	"mdlconv/internal/importer"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configurable paths and conversion settings.
type Config struct {
	// Paths
	InputDir   string `json:"input_dir" toml:"input_dir" yaml:"input_dir"`
	OutputDir  string `json:"output_dir" toml:"output_dir" yaml:"output_dir"`
	TextureDir string `json:"texture_dir" toml:"texture_dir" yaml:"texture_dir"`

	// Import settings
	MaterialsPrefix   string `json:"materials_prefix" toml:"materials_prefix" yaml:"materials_prefix"`
	ExportAnimations  *bool  `json:"export_animations" toml:"export_animations" yaml:"export_animations"`
	ReduceKeyframes   bool   `json:"reduce_keyframes" toml:"reduce_keyframes" yaml:"reduce_keyframes"`
	SplitRootChildren bool   `json:"split_root_children" toml:"split_root_children" yaml:"split_root_children"`
	// Relocation is "keep" (relative layout) or "flatten" (into FlattenDir).
	Relocation string `json:"relocation" toml:"relocation" yaml:"relocation"`
	FlattenDir string `json:"flatten_dir" toml:"flatten_dir" yaml:"flatten_dir"`

	// Textures
	TextureFormat  string `json:"texture_format" toml:"texture_format" yaml:"texture_format"`
	MaxTextureSize int    `json:"max_texture_size" toml:"max_texture_size" yaml:"max_texture_size"`

	// Source formats
	FlipUVs   bool    `json:"flip_uvs" toml:"flip_uvs" yaml:"flip_uvs"`
	BMDZUp    *bool   `json:"bmd_z_up" toml:"bmd_z_up" yaml:"bmd_z_up"`
	BMDFPS    float64 `json:"bmd_fps" toml:"bmd_fps" yaml:"bmd_fps"`
	BMDXORKey string  `json:"bmd_xor_key" toml:"bmd_xor_key" yaml:"bmd_xor_key"`
	BMDLEAKey string  `json:"bmd_lea_key" toml:"bmd_lea_key" yaml:"bmd_lea_key"`

	Workers int `json:"workers" toml:"workers" yaml:"workers"`
}

// FileNames are the config files FindConfig looks for, in order.
var FileNames = []string{"mdlconv.toml", "mdlconv.yaml", "mdlconv.yml", "mdlconv.json"}

// Load reads a config file. The decoder is picked by extension.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FindConfig returns the first of FileNames present in dir, or "".
func FindConfig(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir      string
	OutputDir     string
	Prefix        string
	TextureFormat string
	Workers       int
	Split         bool
	Reduce        bool
	NoAnimations  bool
}

// Resolve applies flags, then fills any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Prefix != "" {
		c.MaterialsPrefix = flags.Prefix
	}
	if flags.TextureFormat != "" {
		c.TextureFormat = flags.TextureFormat
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Split {
		c.SplitRootChildren = true
	}
	if flags.Reduce {
		c.ReduceKeyframes = true
	}
	if flags.NoAnimations {
		c.ExportAnimations = boolPtr(false)
	}

	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "converted")
	}
	if c.TextureDir == "" {
		c.TextureDir = c.InputDir
	} else if !filepath.IsAbs(c.TextureDir) {
		c.TextureDir = filepath.Join(c.InputDir, c.TextureDir)
	}
	if c.ExportAnimations == nil {
		c.ExportAnimations = boolPtr(true)
	}
	if c.BMDZUp == nil {
		c.BMDZUp = boolPtr(true)
	}
	if c.BMDFPS <= 0 {
		c.BMDFPS = bmd.DefaultFPS
	}
	if c.Relocation == "" {
		c.Relocation = "keep"
	}
	if c.TextureFormat == "" {
		c.TextureFormat = string(assets.FormatKeep)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

func boolPtr(b bool) *bool { return &b }

// Validate checks the values Resolve cannot default.
func (c *Config) Validate() error {
	if _, err := assets.ParseFormat(c.TextureFormat); err != nil {
		return err
	}
	if c.Relocation != "keep" && c.Relocation != "flatten" {
		return fmt.Errorf("config: relocation must be keep or flatten, got %q", c.Relocation)
	}
	if c.MaxTextureSize < 0 {
		return fmt.Errorf("config: max_texture_size must not be negative")
	}
	_, err := c.BMDKeys()
	return err
}

// ImporterSettings returns the importer settings the config selects.
func (c *Config) ImporterSettings() importer.Settings {
	s := importer.DefaultSettings()
	s.ExportAnimations = c.ExportAnimations == nil || *c.ExportAnimations
	s.ReduceKeyFrames = c.ReduceKeyframes
	if c.Relocation == "flatten" {
		s.Relocation = importer.Flatten{Dir: c.FlattenDir}
	}
	return s
}

// BMDKeys decodes the hex cipher keys, using the defaults for empty ones.
func (c *Config) BMDKeys() (bmd.Keys, error) {
	keys := bmd.DefaultKeys()
	if c.BMDXORKey != "" {
		if err := decodeKey(keys.XOR[:], c.BMDXORKey); err != nil {
			return keys, fmt.Errorf("config: bmd_xor_key: %w", err)
		}
	}
	if c.BMDLEAKey != "" {
		if err := decodeKey(keys.LEA[:], c.BMDLEAKey); err != nil {
			return keys, fmt.Errorf("config: bmd_lea_key: %w", err)
		}
	}
	return keys, nil
}

func decodeKey(dst []byte, s string) error {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("want %d bytes, got %d", len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
