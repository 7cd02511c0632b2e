package configdb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xtding233/scale-backend/internal/confignode"
)

// Paths helper for the database directory.
type Paths struct {
	BaseDir string // base directory, e.g., /opt/app/GameData
}

// Files lists every *.yaml/*.yml file under BaseDir, recursively, in lexical order.
func (p Paths) Files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(p.BaseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			out = append(out, path)
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	sort.Strings(out)
	return out, err
}

// Loader reads YAML files and indexes top-level records by kind.
type Loader struct {
	paths Paths
	log   *slog.Logger

	mu    sync.RWMutex
	cache map[string]*confignode.Node // key: file path
}

// NewLoader creates a database loader for the given base directory.
func NewLoader(baseDir string, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		log:   log,
		cache: make(map[string]*confignode.Node),
	}
}

// Records returns every top-level record of the given kind, in file order then
// declaration order. Unreadable or malformed files are logged and skipped.
// Files are read once per Loader.
func (l *Loader) Records(kind string) []*confignode.Node {
	files, err := l.paths.Files()
	if err != nil {
		l.log.Warn("config database scan failed", "dir", l.paths.BaseDir, "err", err)
	}
	var out []*confignode.Node
	for _, f := range files {
		root, err := l.file(f)
		if err != nil {
			l.log.Warn("config file skipped", "file", f, "err", err)
			continue
		}
		out = append(out, root.GetNodes(kind)...)
	}
	return out
}

func (l *Loader) file(path string) (*confignode.Node, error) {
	l.mu.RLock()
	if n, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return n, nil
	}
	l.mu.RUnlock()

	n, err := ReadYAML(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = n
	l.mu.Unlock()
	return n, nil
}

// ReadYAML loads a YAML file into a root Node. Missing files return an empty node, no error.
func ReadYAML(path string) (*confignode.Node, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &confignode.Node{Name: name}, nil
		}
		return nil, err
	}
	n, err := confignode.Parse(name, b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}
