package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mdlconv/internal/importer"
	"mdlconv/internal/mdl"
	"mdlconv/internal/model"
	"mdlconv/internal/scene"
)

// Config holds all shared resources for a batch run.
type Config struct {
	// InputDir is the directory sources are relative to. Outputs mirror
	// that layout below OutputDir; empty flattens them to base names.
	InputDir  string
	OutputDir string
	// MaterialsPrefix names material assets; empty uses each file's stem.
	MaterialsPrefix string
	Split           bool
	Settings        importer.Settings
	Sources         SourceOptions
	Workers         int
	Log             *slog.Logger
	// Progress receives the periodic progress line; nil disables it.
	Progress io.Writer
}

// Result holds the outcome of processing one source file.
type Result struct {
	File    string
	Models  []string // written .mdl files, slash separated, relative to OutputDir
	Success bool
	Error   string
}

// Run converts all files using a worker pool. Each worker owns its
// importer. The side assets of every successful file are merged into the
// returned AdditionalResult for a single export.
func Run(cfg Config, files []string) ([]Result, *importer.AdditionalResult) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	total := len(files)
	stems := uniqueStems(cfg, files)
	results := make([]Result, total)
	adds := make([]*importer.AdditionalResult, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						rate := float64(p) / elapsed
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f files/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	// Worker pool
	fileChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			im := importer.New(cfg.Settings, cfg.Log)
			for idx := range fileChan {
				results[idx], adds[idx] = processFile(cfg, im, files[idx], stems[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	merged := importer.NewAdditionalResult()
	for _, add := range adds {
		if add != nil {
			merged.Merge(add)
		}
	}
	return results, merged
}

// ProcessFile converts one file with a fresh importer.
func ProcessFile(cfg Config, file string) (Result, *importer.AdditionalResult) {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return processFile(cfg, importer.New(cfg.Settings, cfg.Log), file, stemOf(cfg, file))
}

// stemOf returns the slash separated output stem of file: its path
// relative to InputDir without extension, or its base name.
func stemOf(cfg Config, file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if cfg.InputDir == "" {
		return stem
	}
	rel, err := filepath.Rel(cfg.InputDir, file)
	if err != nil || !filepath.IsLocal(rel) {
		return stem
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
}

// uniqueStems gives every file its own stem. Sources that differ only by
// extension get _1, _2, ... in list order.
func uniqueStems(cfg Config, files []string) []string {
	used := scene.UniqueNames{}
	stems := make([]string, len(files))
	for i, f := range files {
		stems[i] = used.Take(stemOf(cfg, f))
	}
	return stems
}

func processFile(cfg Config, im *importer.Importer, file, stem string) (Result, *importer.AdditionalResult) {
	res := Result{File: file}
	fail := func(err error) (Result, *importer.AdditionalResult) {
		res.Error = err.Error()
		cfg.Log.Warn("conversion failed", "file", file, "err", err)
		return res, nil
	}

	src, err := OpenSource(file, cfg.Sources)
	if err != nil {
		return fail(err)
	}

	prefix := cfg.MaterialsPrefix
	if prefix == "" {
		prefix = stem
	}

	add := importer.NewAdditionalResult()
	var parts []importer.Part
	if cfg.Split {
		var splitErr error
		parts, splitErr = im.ImportAsMultiple(add, prefix, src, stem+filepath.Ext(file))
		if splitErr != nil {
			res.Error = splitErr.Error()
		}
		if len(parts) == 0 {
			if splitErr == nil {
				splitErr = fmt.Errorf("batch: %s has no sub-models", file)
			}
			return fail(splitErr)
		}
	} else {
		m, err := im.Parse(add, prefix, src, importer.NoEnforcedRoot)
		if err != nil {
			return fail(err)
		}
		parts = []importer.Part{{Model: m, FileName: path.Base(stem) + ".mdl"}}
	}

	dir := path.Dir(stem)
	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, filepath.FromSlash(dir)), 0755); err != nil {
		return fail(err)
	}
	for _, p := range parts {
		name := path.Join(dir, p.FileName)
		if err := mdl.WriteFileID(filepath.Join(cfg.OutputDir, filepath.FromSlash(name)), p.Model, model.AssetID(name)); err != nil {
			return fail(err)
		}
		res.Models = append(res.Models, name)
	}
	res.Success = true
	cfg.Log.Debug("converted", "file", file, "models", len(res.Models))
	return res, add
}
