package domain

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// LookupNode walks a parsed YAML document along an ordered list of path
// segments and returns the addressed node. Mapping nodes are indexed by key,
// sequence nodes by a numeric segment. Returns nil when any segment fails to
// resolve; it never panics on malformed documents.
func LookupNode(root *yaml.Node, path []string) *yaml.Node {
	node := root
	if node != nil && node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}

	for _, segment := range path {
		if node == nil {
			return nil
		}
		switch node.Kind {
		case yaml.MappingNode:
			node = mappingValue(node, segment)
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node.Content) {
				return nil
			}
			node = node.Content[idx]
		default:
			return nil
		}
	}
	return node
}

// LookupScalar resolves path to a scalar node, or nil if the path lands on
// anything else.
func LookupScalar(root *yaml.Node, path []string) *yaml.Node {
	node := LookupNode(root, path)
	if node == nil || node.Kind != yaml.ScalarNode {
		return nil
	}
	return node
}

// mappingValue returns the value node for a key in a mapping. yaml.v3 stores
// mappings as a flat [key, value, key, value, ...] content slice.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// scalarAt is a convenience for reading an optional string field one or more
// levels below a mapping node.
func scalarAt(node *yaml.Node, path ...string) string {
	found := LookupNode(node, path)
	if found == nil || found.Kind != yaml.ScalarNode {
		return ""
	}
	return found.Value
}
