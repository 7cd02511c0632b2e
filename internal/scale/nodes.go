package scale

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xtding233/scale-backend/internal/confignode"
)

// BaseNode is always present in a resolved attach-node table.
const BaseNode = "base"

// minNodeScale is the smallest magnitude accepted without a warning.
const minNodeScale = 0.01

// NodeInfo is the family and scale factor of one attach node.
type NodeInfo struct {
	Family string
	Scale  float64
}

// Valid reports whether the scale is usable as a factor.
func (n NodeInfo) Valid() bool {
	return math.Abs(n.Scale) >= minNodeScale
}

func (n NodeInfo) String() string {
	return fmt.Sprintf("(%s, %g)", n.Family, n.Scale)
}

// ParseNodeInfo reads "scale" or "family:scale". A bare scale takes family.
func ParseNodeInfo(s, family string) (NodeInfo, error) {
	scalePart := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		family = strings.TrimSpace(s[:i])
		scalePart = s[i+1:]
		if j := strings.IndexByte(scalePart, ':'); j >= 0 {
			scalePart = scalePart[:j]
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(scalePart), 64)
	if err != nil {
		return NodeInfo{}, fmt.Errorf("invalid attachment node string %q", s)
	}
	return NodeInfo{Family: family, Scale: f}, nil
}

// MergeAttachNodes copies parent, overlays the entries of override (may be nil)
// and guarantees a BaseNode entry. Malformed entries are logged and skipped;
// near-zero scales are kept but logged.
func MergeAttachNodes(parent map[string]NodeInfo, override *confignode.Node, family string, log *slog.Logger) map[string]NodeInfo {
	out := make(map[string]NodeInfo, len(parent)+1)
	for k, v := range parent {
		out[k] = v
	}
	if override != nil {
		for _, v := range override.Values {
			ni, err := ParseNodeInfo(v.Value, family)
			if err != nil {
				log.Warn("attach node skipped", "node", v.Name, "err", err)
				continue
			}
			if !ni.Valid() {
				log.Warn("invalid scale for family", "node", v.Name, "family", ni.Family, "scale", ni.Scale)
			}
			out[v.Name] = ni
		}
	}
	if _, ok := out[BaseNode]; !ok {
		out[BaseNode] = NodeInfo{Family: family, Scale: 1}
	}
	return out
}
