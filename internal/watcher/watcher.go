// Package watcher ingests documents dropped into a folder.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/parser"
)

const DefaultDebounce = 500 * time.Millisecond

// IngestFunc ingests one file. Errors are logged and do not stop the watcher.
type IngestFunc func(ctx context.Context, path string) error

type Watcher struct {
	dir      string
	debounce time.Duration
	ingest   IngestFunc
}

func New(dir string, debounce time.Duration, ingest IngestFunc) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: dir, debounce: debounce, ingest: ingest}
}

// Run ingests the files already present, then every supported file created or
// written afterwards, one at a time. It returns when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	existing, err := w.existingFiles()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.ingestOne(ctx, path)
	}
	log.Info().Str("dir", w.dir).Int("existing", len(existing)).Msg("Watching folder")

	ready := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !shouldIngest(ev) {
				continue
			}
			if t, ok := pending[ev.Name]; ok {
				t.Reset(w.debounce)
				continue
			}
			path := ev.Name
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)
			w.ingestOne(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) ingestOne(ctx context.Context, path string) {
	if err := w.ingest(ctx, path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to ingest file")
		return
	}
	log.Info().Str("path", path).Msg("Ingested file")
}

func (w *Watcher) existingFiles() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !eligible(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func shouldIngest(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if !eligible(filepath.Base(ev.Name)) {
		return false
	}
	info, err := os.Stat(ev.Name)
	return err == nil && !info.IsDir()
}

// eligible skips hidden and editor temp files.
func eligible(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || strings.HasSuffix(name, "~") {
		return false
	}
	return parser.IsSupported(name)
}
