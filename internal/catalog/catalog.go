// Package catalog holds the entity catalog consumed by the dry cost coordinator.
package catalog

import (
	"sync"

	"github.com/xtding233/scale-backend/internal/drycost"
)

// Module is a prototype module with no behavior of its own.
type Module struct {
	Name string
}

// Prototype is a part's runtime prototype.
type Prototype struct {
	resources []drycost.Resource
	modules   []string
	instances map[string]any
}

// NewPrototype builds a prototype; scaleModule gets a *drycost.ScaleModule
// instance, every other module a *Module.
func NewPrototype(resources []drycost.Resource, modules []string, scaleModule string) *Prototype {
	p := &Prototype{
		resources: append([]drycost.Resource(nil), resources...),
		modules:   append([]string(nil), modules...),
		instances: make(map[string]any, len(modules)),
	}
	for _, m := range modules {
		if _, ok := p.instances[m]; ok {
			continue
		}
		if m == scaleModule {
			p.instances[m] = &drycost.ScaleModule{}
		} else {
			p.instances[m] = &Module{Name: m}
		}
	}
	return p
}

func (p *Prototype) Resources() []drycost.Resource { return p.resources }
func (p *Prototype) ModuleNames() []string { return p.modules }
func (p *Prototype) Module(name string) (any, bool) {
	m, ok := p.instances[name]
	return m, ok
}

// Part is one catalog entry. Its prototype is attached after creation.
type Part struct {
	name  string
	title string
	cost  float64

	mu    sync.RWMutex
	proto *Prototype
}

func NewPart(name, title string, cost float64) *Part {
	return &Part{name: name, title: title, cost: cost}
}

func (p *Part) Name() string  { return p.name }
func (p *Part) Title() string { return p.title }
func (p *Part) Cost() float64 { return p.cost }

// Prototype returns nil until SetPrototype has been called.
func (p *Part) Prototype() drycost.Prototype {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.proto == nil {
		return nil
	}
	return p.proto
}

func (p *Part) SetPrototype(proto *Prototype) {
	p.mu.Lock()
	p.proto = proto
	p.mu.Unlock()
}

// ScaleModule returns the part's scale module once the prototype exists.
func (p *Part) ScaleModule(name string) (*drycost.ScaleModule, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.proto == nil {
		return nil, false
	}
	raw, ok := p.proto.Module(name)
	if !ok {
		return nil, false
	}
	m, ok := raw.(*drycost.ScaleModule)
	return m, ok
}

// Catalog is the in-memory part list. It does not exist until the first
// Append, matching a loader that publishes lazily.
type Catalog struct {
	mu     sync.RWMutex
	parts  []*Part
	byName map[string]*Part
	loaded bool
}

func New() *Catalog {
	return &Catalog{byName: make(map[string]*Part)}
}

// Entries implements drycost.Catalog.
func (c *Catalog) Entries() ([]drycost.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	out := make([]drycost.Entry, len(c.parts))
	for i, p := range c.parts {
		out[i] = p
	}
	return out, true
}

// Append publishes parts; the catalog exists from the first call on.
func (c *Catalog) Append(parts ...*Part) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	for _, p := range parts {
		c.parts = append(c.parts, p)
		c.byName[p.name] = p
	}
}

func (c *Catalog) Part(name string) (*Part, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byName[name]
	return p, ok
}
