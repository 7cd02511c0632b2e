// types.go
package drycost

import "errors"

var ErrNotScaleModule = errors.New("scale module has unexpected type")

const (
	// DefaultWaitRounds bounds every wait; at 60 ticks/s this is two seconds.
	DefaultWaitRounds = 120
	// DefaultScaleModule is the module name the dry cost is written to.
	DefaultScaleModule = "TweakScale"
)

// DefaultCostExclusion lists companion modules that force IgnoreResourcesForCost.
var DefaultCostExclusion = []string{"FSfuelSwitch"}

// Resource is one resource declared on a prototype.
type Resource struct {
	Name      string
	MaxAmount float64
	UnitCost  float64
}

// ScaleModule is the scaling module instance on a prototype. Its fields are
// written once by the coordinator and read afterwards.
type ScaleModule struct {
	DryCost                float64
	IgnoreResourcesForCost bool
}

// Prototype is an entity's runtime prototype.
type Prototype interface {
	Resources() []Resource
	ModuleNames() []string
	Module(name string) (any, bool)
}

// Entry is one entity in the external catalog.
type Entry interface {
	Name() string
	Title() string
	Cost() float64
	// Prototype is nil until the loader has built it.
	Prototype() Prototype
}

// Catalog is the externally owned, lazily populated entity list.
type Catalog interface {
	// Entries returns ok=false while the catalog does not exist yet.
	Entries() ([]Entry, bool)
}

// Ticker suspends the caller until the next scheduling tick.
type Ticker interface {
	Tick()
}

// State of a Coordinator.
type State int32

const (
	NotStarted State = iota
	WaitingForCatalog
	WaitingForStability
	Computing
	Concluded
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case WaitingForCatalog:
		return "waiting_for_catalog"
	case WaitingForStability:
		return "waiting_for_stability"
	case Computing:
		return "computing"
	case Concluded:
		return "concluded"
	}
	return "unknown"
}

// Status of one entry in the batch.
type Status string

const (
	StatusComputed Status = "computed"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Result is the outcome for one catalog entry.
type Result struct {
	Part                   string  `json:"part"`
	Title                  string  `json:"title,omitempty"`
	Status                 Status  `json:"status"`
	Reason                 string  `json:"reason,omitempty"`
	DryCost                float64 `json:"dry_cost"`
	IgnoreResourcesForCost bool    `json:"ignore_resources_for_cost"`
}

// Report summarizes one run.
type Report struct {
	Results           []Result `json:"results"`
	CatalogTimedOut   bool     `json:"catalog_timed_out"`
	StabilityTimedOut bool     `json:"stability_timed_out"`
	Ticks             int      `json:"ticks"`
}

// Count returns how many results have status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}
