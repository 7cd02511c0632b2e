// Package exponent builds the per-module exponent tables attached to scale types.
package exponent

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/xtding233/scale-backend/internal/confignode"
)

// NodeKind is the child node kind holding a module's exponents.
const NodeKind = "TWEAKSCALEEXPONENTS"

// ScaleExponents maps a module's fields to the exponent applied to the scale factor.
type ScaleExponents struct {
	Module string
	Fields map[string]float64
}

func (e ScaleExponents) clone() ScaleExponents {
	out := ScaleExponents{Module: e.Module, Fields: make(map[string]float64, len(e.Fields))}
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	return out
}

// Table is keyed by module name.
type Table map[string]ScaleExponents

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v.clone()
	}
	return out
}

// Builder reads exponent blocks from a record.
type Builder struct {
	Log *slog.Logger
}

// Build starts from a copy of parent and overlays every exponent block in rec.
// Malformed entries are logged and skipped.
func (b Builder) Build(rec *confignode.Node, parent Table) Table {
	log := b.Log
	if log == nil {
		log = slog.Default()
	}
	out := parent.Clone()
	for _, n := range rec.GetNodes(NodeKind) {
		module, _ := n.GetValue("name")
		module = strings.TrimSpace(module)
		if module == "" {
			log.Warn("exponent block without module name skipped")
			continue
		}
		e, ok := out[module]
		if !ok {
			e = ScaleExponents{Module: module, Fields: map[string]float64{}}
		}
		for _, v := range n.Values {
			if v.Name == "name" {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
			if err != nil {
				log.Warn("invalid exponent", "module", module, "field", v.Name, "value", v.Value)
				continue
			}
			e.Fields[v.Name] = f
		}
		out[module] = e
	}
	return out
}
