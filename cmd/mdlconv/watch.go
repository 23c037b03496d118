package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"mdlconv/internal/assets"
	"mdlconv/internal/batch"

	"github.com/fsnotify/fsnotify"
)

// settle is how long a file must stay quiet before it is converted.
const settle = 500 * time.Millisecond

// watch converts source files under the input directory whenever they are
// written, until interrupted.
func (r *runner) watch() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	err = filepath.WalkDir(r.cfg.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == r.cfg.OutputDir {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", r.cfg.InputDir, err)
	}
	r.log.Info("watching", "dir", r.cfg.InputDir, "dirs", len(w.WatchList()))

	pending := map[string]time.Time{}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.Add(event.Name); err != nil {
						r.log.Warn("cannot watch directory", "dir", event.Name, "err", err)
					}
					continue
				}
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && batch.IsSource(event.Name) {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watcher error", "err", err)
		case now := <-ticker.C:
			var ready []string
			for path, t := range pending {
				if now.Sub(t) >= settle {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				r.convert(path)
			}
		}
	}
}

func (r *runner) convert(path string) {
	res, add := batch.ProcessFile(r.batch, path)
	if !res.Success {
		return
	}
	rep, err := assets.Export(add, r.assets)
	if err != nil {
		r.log.Error("asset export failed", "file", path, "err", err)
		return
	}
	r.log.Info("converted", "file", path, "models", res.Models, "materials", len(rep.Materials), "missing_textures", len(rep.Missing))
}
