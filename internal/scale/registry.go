package scale

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/xtding233/scale-backend/internal/confignode"
)

// Kind is the record kind holding scale types in the config database.
const Kind = "SCALETYPE"

// Database supplies top-level records of a kind.
type Database interface {
	Records(kind string) []*confignode.Node
}

// Registry loads every SCALETYPE once and memoizes the resolved values.
// It is safe for concurrent use.
type Registry struct {
	db       Database
	resolver Resolver
	log      *slog.Logger

	once     sync.Once
	mu       sync.RWMutex
	records  map[string]*confignode.Node
	resolved map[string]ScaleType
	all      []ScaleType
}

// NewRegistry creates a registry; nothing is read until first use.
func NewRegistry(db Database, resolver Resolver, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if resolver.Log == nil {
		resolver.Log = log
	}
	return &Registry{db: db, resolver: resolver, log: log}
}

// Load reads and resolves every record. Only the first call does work.
func (r *Registry) Load() {
	r.once.Do(r.load)
}

func (r *Registry) load() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]*confignode.Node)
	r.resolved = make(map[string]ScaleType)

	var order []string
	var recs []*confignode.Node
	if r.db != nil {
		recs = r.db.Records(Kind)
	}
	for _, rec := range recs {
		name, ok := rec.GetValue("name")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			r.log.Warn("scale type without name ignored")
			continue
		}
		if _, dup := r.records[name]; dup {
			r.log.Warn("duplicate scale type ignored", "scaletype", name)
			continue
		}
		r.records[name] = rec
		order = append(order, name)
	}

	for _, name := range order {
		r.all = append(r.all, r.resolve(name, map[string]bool{}))
	}
	r.log.Info("scale types loaded", "count", len(r.all))
}

// resolve must be called with r.mu held. visiting holds the names on the
// current inheritance path.
func (r *Registry) resolve(name string, visiting map[string]bool) ScaleType {
	if st, ok := r.resolved[name]; ok {
		return st
	}
	rec, ok := r.records[name]
	if !ok {
		if name != DefaultName {
			r.log.Warn("no SCALETYPE with name", "scaletype", name)
		}
		return Default()
	}
	if visiting[name] {
		r.log.Error("scale type inheritance cycle; using default", "scaletype", name)
		return Default()
	}
	visiting[name] = true
	defer delete(visiting, name)

	st := r.resolver.Resolve(rec, func(parent string) ScaleType {
		return r.resolve(parent, visiting)
	})
	r.resolved[name] = st
	return st
}

// GetByName returns the named scale type, or Default if there is none.
func (r *Registry) GetByName(name string) ScaleType {
	r.Load()
	r.mu.RLock()
	st, ok := r.resolved[name]
	r.mu.RUnlock()
	if ok {
		return st
	}
	if name != DefaultName {
		r.log.Warn("no SCALETYPE with name", "scaletype", name)
	}
	return Default()
}

// Lookup is GetByName without the fallback: ok is false for unknown names.
func (r *Registry) Lookup(name string) (ScaleType, bool) {
	r.Load()
	r.mu.RLock()
	st, ok := r.resolved[name]
	r.mu.RUnlock()
	if !ok && name == DefaultName {
		return Default(), true
	}
	return st, ok
}

// All returns every resolved scale type in database order.
func (r *Registry) All() []ScaleType {
	r.Load()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ScaleType(nil), r.all...)
}
