package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PluginOption is one name/value pair handed to the plugin hooks.
type PluginOption struct {
	Name  string
	Value string
}

// PluginOptions keeps the plugins mapping in file order. Scalar values of any
// YAML type are kept as their literal text, so `downloadupdates: false`
// arrives as "false".
type PluginOptions []PluginOption

// UnmarshalYAML decodes a mapping of scalars preserving key order.
func (p *PluginOptions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("plugins: line %d: expected a mapping", node.Line)
	}
	out := make(PluginOptions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("plugins: line %d: option %q must be a scalar", value.Line, key.Value)
		}
		out = append(out, PluginOption{Name: key.Value, Value: value.Value})
	}
	*p = out
	return nil
}

// MarshalYAML writes the options back as an ordered mapping.
func (p PluginOptions) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, opt := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: opt.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: opt.Value},
		)
	}
	return node, nil
}

// Apply offers every option to consume in order and returns the names nobody
// claimed.
func (p PluginOptions) Apply(consume func(name, value string) bool) []string {
	var unclaimed []string
	for _, opt := range p {
		if !consume(opt.Name, opt.Value) {
			unclaimed = append(unclaimed, opt.Name)
		}
	}
	return unclaimed
}
