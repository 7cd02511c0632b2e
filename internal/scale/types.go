// types.go
package scale

import (
	"fmt"
	"strings"

	"github.com/xtding233/scale-backend/internal/exponent"
)

const (
	// DefaultName is the sentinel name of the built-in scale type.
	DefaultName = "default"
	// PlaceholderName on a record means "take the parent's name".
	PlaceholderName = "TweakScale"
	// DefaultFamily is the family of a record that declares none.
	DefaultFamily = "default"
)

var (
	canonicalFactors = []float64{0.625, 1.25, 2.5, 3.75, 5}
	canonicalNames   = []string{"62.5cm", "1.25m", "2.5m", "3.75m", "5m"}
)

// Unlocker answers tech-gate queries; *tech.Gate implements it.
type Unlocker interface {
	IsUnlocked(techID string) bool
}

// ScaleType is a resolved, immutable scale configuration. Slice and map
// accessors return copies.
type ScaleType struct {
	Name   string
	Family string

	IsFreeScale  bool
	MinValue     float64
	MaxValue     float64
	DefaultScale float64
	Suffix       string

	IncrementLarge float64
	IncrementSmall float64
	IncrementSlide float64

	scaleFactors []float64
	scaleNames   []string
	techRequired []string
	scaleNodes   []int
	attachNodes  map[string]NodeInfo
	exponents    exponent.Table
}

// Default returns the built-in scale type.
func Default() ScaleType {
	return ScaleType{
		Name:         DefaultName,
		DefaultScale: 1.25,
		Suffix:       "m",
		scaleFactors: append([]float64(nil), canonicalFactors...),
		scaleNames:   append([]string(nil), canonicalNames...),
		techRequired: []string{"", "", "", "", ""},
		scaleNodes:   []int{},
		attachNodes:  map[string]NodeInfo{BaseNode: {Family: "", Scale: 1}},
		exponents:    exponent.Table{},
	}
}

// ScaleFactors returns the steps whose tech is unlocked by u, in order.
// A nil u applies no gating.
func (s ScaleType) ScaleFactors(u Unlocker) []float64 {
	return zipFilter(s.scaleFactors, s.techRequired, u)
}

// ScaleNames is the label view matching ScaleFactors.
func (s ScaleType) ScaleNames(u Unlocker) []string {
	return zipFilter(s.scaleNames, s.techRequired, u)
}

// AllScaleFactors is the canonical step set, independent of gating and of overrides.
func (s ScaleType) AllScaleFactors() []float64 {
	return append([]float64(nil), canonicalFactors...)
}

func (s ScaleType) TechRequired() []string { return append([]string(nil), s.techRequired...) }

func (s ScaleType) ScaleNodes() []int { return append([]int(nil), s.scaleNodes...) }

// AttachNodes returns a copy of the attach-node table.
func (s ScaleType) AttachNodes() map[string]NodeInfo {
	out := make(map[string]NodeInfo, len(s.attachNodes))
	for k, v := range s.attachNodes {
		out[k] = v
	}
	return out
}

func (s ScaleType) AttachNode(name string) (NodeInfo, bool) {
	n, ok := s.attachNodes[name]
	return n, ok
}

// BaseScale is the scale of the base attach node.
func (s ScaleType) BaseScale() float64 {
	return s.attachNodes[BaseNode].Scale
}

func (s ScaleType) Exponents() exponent.Table { return s.exponents.Clone() }

// Equal compares identity, which is the name.
func (s ScaleType) Equal(o ScaleType) bool { return s.Name == o.Name }

func (s ScaleType) String() string {
	var b strings.Builder
	b.WriteString("ScaleType {\n")
	fmt.Fprintf(&b, "\tname = %s\n", s.Name)
	fmt.Fprintf(&b, "\tisFreeScale = %t\n", s.IsFreeScale)
	fmt.Fprintf(&b, "\tscaleFactors = %v\n", s.scaleFactors)
	fmt.Fprintf(&b, "\tscaleNodes = %v\n", s.scaleNodes)
	fmt.Fprintf(&b, "\tminValue = %g\n", s.MinValue)
	fmt.Fprintf(&b, "\tmaxValue = %g\n", s.MaxValue)
	b.WriteString("}")
	return b.String()
}

func zipFilter[T any](items []T, techs []string, u Unlocker) []T {
	n := min(len(items), len(techs))
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		if u == nil || u.IsUnlocked(techs[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
