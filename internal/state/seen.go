// Package state persists the set of article URLs already processed, so a URL
// discovered in one run is never re-processed in a later one.
package state

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry is the persistent seen-URL set. URLs are stored as MD5 hex
// digests in a sorted JSON array, which keeps the file compact and
// human-diffable. Hashes are never removed: the set only grows.
type Registry struct {
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// Open loads the registry from path. A missing or corrupt file starts an
// empty registry rather than failing the run.
func Open(path string, logger *zap.Logger) *Registry {
	r := &Registry{
		path:   path,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
	r.load()
	return r
}

func (r *Registry) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("failed to read seen state, starting fresh",
				zap.String("path", r.path), zap.Error(err))
		}
		return
	}
	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		r.logger.Warn("seen state file invalid, starting fresh",
			zap.String("path", r.path), zap.Error(err))
		return
	}
	for _, h := range hashes {
		r.seen[h] = struct{}{}
	}
}

func (r *Registry) save() {
	hashes := make([]string, 0, len(r.seen))
	for h := range r.seen {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		r.logger.Error("failed to encode seen state", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		r.logger.Error("failed to create data directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		r.logger.Error("failed to save seen state",
			zap.String("path", r.path), zap.Error(err))
	}
}

func hashURL(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Seen reports whether url was marked before.
func (r *Registry) Seen(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[hashURL(url)]
	return ok
}

// Mark records url as seen and persists immediately. Already-seen URLs are
// a no-op.
func (r *Registry) Mark(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := hashURL(url)
	if _, ok := r.seen[h]; ok {
		return
	}
	r.seen[h] = struct{}{}
	r.save()
}

// Len returns the number of stored hashes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
