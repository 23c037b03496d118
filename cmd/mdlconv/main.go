package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mdlconv/internal/assets"
	"mdlconv/internal/batch"
	"mdlconv/internal/bmd"
	"mdlconv/internal/config"
	"mdlconv/internal/gltfscene"
	"mdlconv/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a .toml, .yaml or .json config (default: mdlconv.* in the input directory)")
	inputDir := flag.String("input", "", "Directory with source models (default: .)")
	outputDir := flag.String("output", "", "Output directory (default: <input>/converted)")
	prefix := flag.String("prefix", "", "Material asset prefix (default: source file name)")
	format := flag.String("format", "", "Texture output format: keep, png or webp")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	split := flag.Bool("split", false, "Write every child of the scene root as its own model")
	reduce := flag.Bool("reduce", false, "Drop redundant animation keyframes")
	noAnim := flag.Bool("no-anim", false, "Skip animations")
	watch := flag.Bool("watch", false, "Keep running and convert source files as they change")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Load config
	path := *configFile
	if path == "" {
		dir := *inputDir
		if dir == "" {
			dir = "."
		}
		path = config.FindConfig(dir)
	}
	var cfg config.Config
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		log.Debug("config loaded", "path", path)
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:      *inputDir,
		OutputDir:     *outputDir,
		Prefix:        *prefix,
		TextureFormat: *format,
		Workers:       *workers,
		Split:         *split,
		Reduce:        *reduce,
		NoAnimations:  *noAnim,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	run, err := newRunner(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *watch {
		if err := run.watch(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	files, err := batch.FindSources(cfg.InputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No source models found.")
		os.Exit(0)
	}

	fmt.Printf("Models: %d, Workers: %d\n", len(files), cfg.Workers)
	fmt.Printf("Textures: %d indexed\n", run.textures.Index().Len())
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	results, add := batch.Run(run.batch, files)

	rep, err := assets.Export(add, run.assets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing assets: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Converted: %d/%d, materials: %d, textures: %d\n",
		success, len(files), len(rep.Materials), len(rep.Textures))
	if len(rep.Missing) > 0 {
		fmt.Printf("Missing textures: %d\n", len(rep.Missing))
	}

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.File, e.Error)
		}
	}

	// Write manifest
	manifest := batch.NewManifest(cfg.InputDir, results)
	manifest.Materials = rep.Materials
	manifest.Missing = rep.Missing
	for _, final := range rep.Textures {
		manifest.Textures = append(manifest.Textures, final)
	}
	sort.Strings(manifest.Textures)
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, manifest); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// runner holds the resources shared by batch and watch mode.
type runner struct {
	cfg      config.Config
	log      *slog.Logger
	textures *texture.Cache
	batch    batch.Config
	assets   assets.Options
}

func newRunner(cfg config.Config, log *slog.Logger) (*runner, error) {
	keys, err := cfg.BMDKeys()
	if err != nil {
		return nil, err
	}
	format, err := assets.ParseFormat(cfg.TextureFormat)
	if err != nil {
		return nil, err
	}

	textures := texture.NewCache(texture.BuildIndex(cfg.TextureDir))
	return &runner{
		cfg:      cfg,
		log:      log,
		textures: textures,
		batch: batch.Config{
			InputDir:        cfg.InputDir,
			OutputDir:       cfg.OutputDir,
			MaterialsPrefix: cfg.MaterialsPrefix,
			Split:           cfg.SplitRootChildren,
			Settings:        cfg.ImporterSettings(),
			Sources: batch.SourceOptions{
				GLTF:    gltfscene.Options{FlipV: cfg.FlipUVs},
				BMD:     bmd.Options{FPS: cfg.BMDFPS, ZUp: *cfg.BMDZUp},
				BMDKeys: keys,
			},
			Workers:  cfg.Workers,
			Log:      log,
			Progress: os.Stdout,
		},
		assets: assets.Options{
			OutDir:   cfg.OutputDir,
			Textures: textures,
			Format:   format,
			MaxSize:  cfg.MaxTextureSize,
			Log:      log,
		},
	}, nil
}
