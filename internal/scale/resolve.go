// resolve.go
package scale

import (
	"log/slog"
	"math"
	"strings"

	"github.com/xtding233/scale-backend/internal/confignode"
	"github.com/xtding233/scale-backend/internal/exponent"
)

// Lookup returns the resolved scale type for a parent name, falling back to
// Default when the name is unknown.
type Lookup func(name string) ScaleType

// ExponentBuilder produces a record's exponent table from its parent's.
type ExponentBuilder interface {
	Build(rec *confignode.Node, parent exponent.Table) exponent.Table
}

// Resolver turns one SCALETYPE record into a ScaleType, inheriting unset
// fields from the parent named by its "type" field.
type Resolver struct {
	Log       *slog.Logger
	Exponents ExponentBuilder
}

// Resolve merges parent → record. A nil record, or one named "default",
// resolves to Default.
func (r Resolver) Resolve(rec *confignode.Node, lookup Lookup) ScaleType {
	name, ok := rec.GetValue("name")
	name = strings.TrimSpace(name)
	if !ok {
		name = DefaultName
	}
	if rec == nil || name == DefaultName {
		return Default()
	}
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("scaletype", name)

	parentName, ok := rec.GetValue("type")
	if !ok {
		parentName = DefaultName
	}
	parent := Default()
	if lookup != nil {
		parent = lookup(strings.TrimSpace(parentName))
	}

	f := fields{rec: rec, log: log}
	st := ScaleType{
		Name:           name,
		Family:         f.str("family", DefaultFamily),
		IsFreeScale:    f.boolean("freeScale", parent.IsFreeScale),
		MinValue:       f.float("minScale", parent.MinValue),
		MaxValue:       f.float("maxScale", parent.MaxValue),
		Suffix:         f.str("suffix", parent.Suffix),
		IncrementLarge: f.float("incrementLarge", parent.IncrementLarge),
		IncrementSmall: f.float("incrementSmall", parent.IncrementSmall),
		IncrementSlide: f.float("incrementSlide", parent.IncrementSlide),
		scaleFactors:   f.floats("scaleFactors", parent.scaleFactors),
		scaleNodes:     f.ints("scaleNodes", parent.scaleNodes),
		scaleNames:     f.trimmed("scaleNames", parent.scaleNames),
		techRequired:   f.trimmed("techRequired", parent.techRequired),
	}
	st.attachNodes = MergeAttachNodes(parent.attachNodes, rec.GetNode("ATTACHNODES"), st.Family, log)

	if st.Name == PlaceholderName {
		st.Name = parent.Name
	}

	if !st.IsFreeScale && len(st.scaleFactors) != len(st.scaleNames) {
		log.Warn("wrong number of scaleFactors compared to scaleNames",
			"scaleFactors", len(st.scaleFactors), "scaleNames", len(st.scaleNames))
	}
	if n := len(st.techRequired); n != len(st.scaleFactors) {
		if n > len(st.scaleFactors) {
			log.Warn("wrong number of techRequired compared to scaleFactors",
				"scaleFactors", len(st.scaleFactors), "techRequired", n)
		} else {
			pad := make([]string, len(st.scaleFactors)-n)
			st.techRequired = append(st.techRequired, pad...)
		}
	}

	declared := f.float("defaultScale", parent.DefaultScale)
	if st.MaxValue == 0 {
		if len(st.scaleFactors) > 0 {
			st.MaxValue = maxOf(st.scaleFactors)
		} else {
			log.Warn("scale type is missing a maxScale")
			st.MaxValue = declared * 4
		}
	}
	if st.MinValue == 0 {
		if len(st.scaleFactors) > 0 {
			st.MinValue = minOf(st.scaleFactors)
		} else {
			log.Warn("scale type is missing a minScale")
			st.MinValue = declared * 0.5
		}
	}
	if !st.IsFreeScale {
		// Prefer a factor inside the bounds so the clamp below keeps it a factor.
		if in := within(st.scaleFactors, st.MinValue, st.MaxValue); len(in) > 0 {
			declared = closest(declared, in)
		} else {
			declared = closest(declared, st.scaleFactors)
		}
	}
	st.DefaultScale = clamp(declared, st.MinValue, st.MaxValue)

	if st.IncrementLarge == 0 {
		st.IncrementLarge = st.MaxValue
	}
	if st.IncrementSlide == 0 {
		st.IncrementSlide = st.MaxValue / 200
	}

	if r.Exponents != nil {
		st.exponents = r.Exponents.Build(rec, parent.exponents)
	} else {
		st.exponents = parent.exponents.Clone()
	}
	return st
}

// fields reads typed overrides from a record; malformed values are logged
// and the inherited value is kept.
type fields struct {
	rec *confignode.Node
	log *slog.Logger
}

func (f fields) str(key, def string) string {
	if v, ok := f.rec.GetValue(key); ok {
		return v
	}
	return def
}

func (f fields) float(key string, def float64) float64 {
	v, ok, err := f.rec.Float(key)
	if err != nil {
		f.log.Warn("malformed value ignored", "err", err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

func (f fields) boolean(key string, def bool) bool {
	v, ok, err := f.rec.Bool(key)
	if err != nil {
		f.log.Warn("malformed value ignored", "err", err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

func (f fields) floats(key string, def []float64) []float64 {
	v, ok, err := f.rec.FloatList(key)
	if err != nil {
		f.log.Warn("malformed value ignored", "err", err)
	}
	if !ok || err != nil {
		return append([]float64(nil), def...)
	}
	return v
}

func (f fields) ints(key string, def []int) []int {
	v, ok, err := f.rec.IntList(key)
	if err != nil {
		f.log.Warn("malformed value ignored", "err", err)
	}
	if !ok || err != nil {
		return append([]int(nil), def...)
	}
	return v
}

func (f fields) trimmed(key string, def []string) []string {
	v, ok := f.rec.StringList(key)
	if !ok {
		return append([]string(nil), def...)
	}
	for i := range v {
		v[i] = strings.TrimSpace(v[i])
	}
	return v
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

// closest returns the element of xs nearest to v; exact ties go to the lower
// element. An empty xs returns v.
func closest(v float64, xs []float64) float64 {
	if len(xs) == 0 {
		return v
	}
	best := xs[0]
	bestDiff := math.Abs(v - best)
	for _, x := range xs[1:] {
		d := math.Abs(v - x)
		if d < bestDiff || (d == bestDiff && x < best) {
			best, bestDiff = x, d
		}
	}
	return best
}

func within(xs []float64, lo, hi float64) []float64 {
	var out []float64
	for _, x := range xs {
		if x >= lo && x <= hi {
			out = append(out, x)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
