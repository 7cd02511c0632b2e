package drycost

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Options configures a Coordinator. Zero values take the package defaults.
type Options struct {
	WaitRounds    int
	ScaleModule   string
	CostExclusion []string
	Log           *slog.Logger
	// OnConcluded runs once, after the concluded flag is set.
	OnConcluded func(Report)
}

// Coordinator computes the dry cost of every catalog entry once, after the
// catalog has appeared and stopped growing.
//
// Run drives NotStarted → WaitingForCatalog → WaitingForStability →
// Computing → Concluded on a single goroutine; State, Concluded and Report
// may be called from any goroutine.
type Coordinator struct {
	catalog Catalog
	ticker  Ticker
	opt     Options
	log     *slog.Logger

	once      sync.Once
	state     atomic.Int32
	concluded atomic.Bool

	mu     sync.RWMutex
	report Report
}

// New creates a coordinator. Nothing happens until Run.
func New(catalog Catalog, ticker Ticker, opt Options) *Coordinator {
	if opt.WaitRounds <= 0 {
		opt.WaitRounds = DefaultWaitRounds
	}
	if opt.ScaleModule == "" {
		opt.ScaleModule = DefaultScaleModule
	}
	if opt.CostExclusion == nil {
		opt.CostExclusion = DefaultCostExclusion
	}
	if opt.Log == nil {
		opt.Log = slog.Default()
	}
	return &Coordinator{catalog: catalog, ticker: ticker, opt: opt, log: opt.Log}
}

func (c *Coordinator) State() State { return State(c.state.Load()) }

// Concluded reports whether the computation has finished.
func (c *Coordinator) Concluded() bool { return c.concluded.Load() }

// Report returns the batch report and whether the run has concluded.
func (c *Coordinator) Report() (Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.report
	r.Results = append([]Result(nil), r.Results...)
	return r, c.Concluded()
}

// Run executes the computation. Only the first call does work; later calls
// wait for it and return the same report.
func (c *Coordinator) Run() Report {
	c.once.Do(c.run)
	r, _ := c.Report()
	return r
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	c.log.Debug("dry cost state", "state", s.String())
}

func (c *Coordinator) tick(rep *Report) {
	c.ticker.Tick()
	rep.Ticks++
}

func (c *Coordinator) run() {
	var rep Report
	c.log.Info("dry cost computation started")

	c.setState(WaitingForCatalog)
	_, ok := c.catalog.Entries()
	for waited := 0; !ok; waited++ {
		if waited >= c.opt.WaitRounds {
			c.log.Error("timeout waiting for entity catalog; continuing", "rounds", c.opt.WaitRounds)
			rep.CatalogTimedOut = true
			break
		}
		c.tick(&rep)
		_, ok = c.catalog.Entries()
	}

	c.setState(WaitingForStability)
	last := -1
	var entries []Entry
	for waited := 0; ; waited++ {
		entries, _ = c.catalog.Entries()
		if len(entries) == last {
			break
		}
		if waited >= c.opt.WaitRounds {
			c.log.Warn("timeout waiting for entity catalog to settle; continuing", "count", len(entries))
			rep.StabilityTimedOut = true
			break
		}
		last = len(entries)
		c.tick(&rep)
	}

	c.setState(Computing)
	for _, e := range entries {
		rep.Results = append(rep.Results, c.process(e, &rep))
	}

	c.mu.Lock()
	c.report = rep
	c.mu.Unlock()
	c.setState(Concluded)
	c.concluded.Store(true)
	c.log.Info("dry cost computation concluded",
		"computed", rep.Count(StatusComputed),
		"skipped", rep.Count(StatusSkipped),
		"failed", rep.Count(StatusFailed))
	if c.opt.OnConcluded != nil {
		c.opt.OnConcluded(rep)
	}
}

// process handles one entry. A panic inside is recorded as a failure.
func (c *Coordinator) process(e Entry, rep *Report) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Reason = fmt.Sprint(r)
			c.log.Error("exception writing dry cost", "part", res.Part, "title", res.Title, "panic", r)
		}
	}()
	res.Part, res.Title = e.Name(), e.Title()

	proto, ok := c.awaitPrototype(e, rep)
	if !ok {
		c.log.Error("timeout waiting for prototype modules", "part", res.Part)
		res.Status, res.Reason = StatusSkipped, "prototype not ready"
		return res
	}
	modules := proto.ModuleNames()
	if !slices.Contains(modules, c.opt.ScaleModule) {
		res.Status, res.Reason = StatusSkipped, "no "+c.opt.ScaleModule+" module"
		return res
	}

	raw, _ := proto.Module(c.opt.ScaleModule)
	m, ok := raw.(*ScaleModule)
	if !ok || m == nil {
		err := fmt.Errorf("%w: %T", ErrNotScaleModule, raw)
		c.log.Error("cannot write dry cost", "part", res.Part, "err", err)
		res.Status, res.Reason = StatusFailed, err.Error()
		return res
	}

	dry := e.Cost()
	for _, r := range proto.Resources() {
		dry -= r.MaxAmount * r.UnitCost
	}
	for _, name := range c.opt.CostExclusion {
		if slices.Contains(modules, name) {
			m.IgnoreResourcesForCost = true
			break
		}
	}
	if dry < 0 {
		c.log.Error("negative dry cost", "part", res.Part, "dry_cost", dry)
		dry = 0
	}
	m.DryCost = dry
	c.log.Debug("dry cost written", "part", res.Part, "dry_cost", dry, "ignore_resources_for_cost", m.IgnoreResourcesForCost)

	res.Status = StatusComputed
	res.DryCost = m.DryCost
	res.IgnoreResourcesForCost = m.IgnoreResourcesForCost
	return res
}

func (c *Coordinator) awaitPrototype(e Entry, rep *Report) (Prototype, bool) {
	for waited := 0; ; waited++ {
		if p := e.Prototype(); p != nil && len(p.ModuleNames()) > 0 {
			return p, true
		}
		if waited >= c.opt.WaitRounds {
			return nil, false
		}
		c.tick(rep)
	}
}
