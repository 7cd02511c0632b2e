package tech

import (
	"log/slog"
	"time"

	"github.com/xtding233/scale-backend/internal/configdb"
	"github.com/xtding233/scale-backend/internal/confignode"
)

// SaveFile is a Session backed by a persisted YAML save document.
type SaveFile struct {
	Path     string
	GameMode Mode
}

func (s SaveFile) Mode() Mode { return s.GameMode }

// Progression reads the save document. A missing file reads as empty.
func (s SaveFile) Progression() (*confignode.Node, error) {
	return configdb.ReadYAML(s.Path)
}

// WatchSave reloads g whenever the save file changes. Stop the returned
// watcher to end polling.
func WatchSave(g *Gate, save SaveFile, interval time.Duration, log *slog.Logger) *configdb.FileWatcher {
	if log == nil {
		log = slog.Default()
	}
	w := configdb.NewFileWatcher([]string{save.Path}, interval, func(p string) {
		log.Debug("save file changed", "path", p)
		g.Reload()
	})
	w.Start()
	return w
}
