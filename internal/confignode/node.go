// node.go
package confignode

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNotMapping = errors.New("config node must be a YAML mapping")

// Value is one key/value pair of a Node. Order is preserved. A value decoded
// from a YAML sequence keeps its items; Value then holds them joined with ", ".
type Value struct {
	Name  string
	Value string
	Items []string
}

// Node is a parsed configuration record: a kind name, flat key/value pairs and
// nested child nodes. Keys may repeat.
type Node struct {
	Name   string
	Values []Value
	Nodes  []*Node
}

// GetValue returns the first value stored under key.
func (n *Node) GetValue(key string) (string, bool) {
	v, ok := n.lookup(key)
	return v.Value, ok
}

func (n *Node) lookup(key string) (Value, bool) {
	if n == nil {
		return Value{}, false
	}
	for _, v := range n.Values {
		if v.Name == key {
			return v, true
		}
	}
	return Value{}, false
}

// GetNode returns the first child of the given kind, or nil.
func (n *Node) GetNode(kind string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if c.Name == kind {
			return c
		}
	}
	return nil
}

// GetNodes returns every child of the given kind, in declaration order.
func (n *Node) GetNodes(kind string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Nodes {
		if c.Name == kind {
			out = append(out, c)
		}
	}
	return out
}

// AddValue appends a key/value pair.
func (n *Node) AddValue(key, value string) *Node {
	n.Values = append(n.Values, Value{Name: key, Value: value})
	return n
}

// AddNode appends a child and returns it.
func (n *Node) AddNode(c *Node) *Node {
	n.Nodes = append(n.Nodes, c)
	return c
}

// UnmarshalYAML decodes a mapping into a Node:
//   - scalar → value
//   - sequence of scalars → one value carrying its items
//   - mapping → child node named after the key
//   - sequence of mappings → one child node per item
func (n *Node) UnmarshalYAML(v *yaml.Node) error {
	if v.Kind == yaml.DocumentNode && len(v.Content) == 1 {
		v = v.Content[0]
	}
	if v.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %w", v.Line, ErrNotMapping)
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		key, val := v.Content[i].Value, v.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			n.AddValue(key, val.Value)
		case yaml.MappingNode:
			child := &Node{Name: key}
			if err := child.UnmarshalYAML(val); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			n.AddNode(child)
		case yaml.SequenceNode:
			if err := n.decodeSequence(key, val); err != nil {
				return err
			}
		case yaml.AliasNode:
			if val.Alias == nil {
				continue
			}
			alias := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{v.Content[i], val.Alias}}
			if err := n.UnmarshalYAML(alias); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *Node) decodeSequence(key string, seq *yaml.Node) error {
	scalars := []string{}
	for _, item := range seq.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			scalars = append(scalars, item.Value)
		case yaml.MappingNode:
			child := &Node{Name: key}
			if err := child.UnmarshalYAML(item); err != nil {
				return fmt.Errorf("%s[%d]: %w", key, len(n.GetNodes(key)), err)
			}
			n.AddNode(child)
		default:
			return fmt.Errorf("%s: line %d: nested sequences are not supported", key, item.Line)
		}
	}
	if len(scalars) > 0 || len(seq.Content) == 0 {
		n.Values = append(n.Values, Value{Name: key, Value: strings.Join(scalars, ", "), Items: scalars})
	}
	return nil
}

// Parse decodes a YAML document into a root Node named name.
func Parse(name string, b []byte) (*Node, error) {
	root := &Node{Name: name}
	if len(strings.TrimSpace(string(b))) == 0 {
		return root, nil
	}
	if err := yaml.Unmarshal(b, root); err != nil {
		return nil, err
	}
	return root, nil
}
