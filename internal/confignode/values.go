package confignode

import (
	"fmt"
	"strconv"
	"strings"
)

// Typed readers. Each returns ok=false when the key is absent; a present but
// malformed value is reported through err and the caller keeps its fallback.

func (n *Node) String(key string) (string, bool) {
	return n.GetValue(key)
}

func (n *Node) Float(key string) (float64, bool, error) {
	s, ok := n.GetValue(key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s: invalid number %q", key, s)
	}
	return f, true, nil
}

func (n *Node) Bool(key string) (bool, bool, error) {
	s, ok := n.GetValue(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, true, fmt.Errorf("%s: invalid bool %q", key, s)
	}
	return b, true, nil
}

// StringList returns the items of a sequence value, or splits a comma
// separated scalar. An empty value is an empty list.
func (n *Node) StringList(key string) ([]string, bool) {
	v, ok := n.lookup(key)
	if !ok {
		return nil, false
	}
	if v.Items != nil {
		return append([]string{}, v.Items...), true
	}
	return SplitList(v.Value), true
}

func (n *Node) FloatList(key string) ([]float64, bool, error) {
	items, ok := n.StringList(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		f, err := strconv.ParseFloat(strings.TrimSpace(it), 64)
		if err != nil {
			return nil, true, fmt.Errorf("%s: invalid number %q", key, it)
		}
		out = append(out, f)
	}
	return out, true, nil
}

func (n *Node) IntList(key string) ([]int, bool, error) {
	items, ok := n.StringList(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		v, err := strconv.Atoi(strings.TrimSpace(it))
		if err != nil {
			return nil, true, fmt.Errorf("%s: invalid integer %q", key, it)
		}
		out = append(out, v)
	}
	return out, true, nil
}

// SplitList splits on commas without trimming items; "" yields no items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
