// Package api exposes scale types and the dry cost report over gRPC and HTTP.
package api

import (
	"sort"

	"github.com/xtding233/scale-backend/internal/drycost"
	"github.com/xtding233/scale-backend/internal/scale"
)

// Views are plain map/[]any trees so the same value encodes as JSON and as
// a structpb.Struct.

func scaleTypeView(st scale.ScaleType, gate scale.Unlocker) map[string]any {
	nodes := st.AttachNodes()
	names := make([]string, 0, len(nodes))
	for k := range nodes {
		names = append(names, k)
	}
	sort.Strings(names)
	attach := make(map[string]any, len(nodes))
	for _, k := range names {
		attach[k] = map[string]any{"family": nodes[k].Family, "scale": nodes[k].Scale}
	}

	exps := map[string]any{}
	for mod, e := range st.Exponents() {
		fields := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			fields[k] = v
		}
		exps[mod] = fields
	}

	return map[string]any{
		"name":              st.Name,
		"family":            st.Family,
		"free_scale":        st.IsFreeScale,
		"min_value":         st.MinValue,
		"max_value":         st.MaxValue,
		"default_scale":     st.DefaultScale,
		"suffix":            st.Suffix,
		"increment_large":   st.IncrementLarge,
		"increment_small":   st.IncrementSmall,
		"increment_slide":   st.IncrementSlide,
		"scale_factors":     floats(st.ScaleFactors(gate)),
		"scale_names":       strs(st.ScaleNames(gate)),
		"all_scale_factors": floats(st.AllScaleFactors()),
		"tech_required":     strs(st.TechRequired()),
		"attach_nodes":      attach,
		"exponents":         exps,
	}
}

func reportView(c *drycost.Coordinator) map[string]any {
	rep, done := c.Report()
	results := make([]any, 0, len(rep.Results))
	for _, r := range rep.Results {
		results = append(results, map[string]any{
			"part":                      r.Part,
			"title":                     r.Title,
			"status":                    string(r.Status),
			"reason":                    r.Reason,
			"dry_cost":                  r.DryCost,
			"ignore_resources_for_cost": r.IgnoreResourcesForCost,
		})
	}
	return map[string]any{
		"state":               c.State().String(),
		"concluded":           done,
		"catalog_timed_out":   rep.CatalogTimedOut,
		"stability_timed_out": rep.StabilityTimedOut,
		"ticks":               rep.Ticks,
		"results":             results,
	}
}

func floats(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func strs(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
