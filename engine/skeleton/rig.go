package skeleton

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RigNode is a single bone entry in a rig definition file.
type RigNode struct {
	Name   string `yaml:"name"`
	Parent int32  `yaml:"parent"`
}

// RigDefinition is the human-authored skeleton description. Nodes are listed
// parent-first so a parent index always refers to an earlier entry.
type RigDefinition struct {
	Name  string    `yaml:"name"`
	Nodes []RigNode `yaml:"nodes"`
}

// ParseRig decodes and validates a yaml rig definition.
func ParseRig(data []byte) (*RigDefinition, error) {
	var rig RigDefinition
	if err := yaml.Unmarshal(data, &rig); err != nil {
		return nil, fmt.Errorf("failed to decode rig definition: %w", err)
	}
	if len(rig.Nodes) == 0 {
		return nil, fmt.Errorf("rig definition '%s' has no nodes", rig.Name)
	}
	for i, node := range rig.Nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("rig definition '%s' node %d has no name", rig.Name, i)
		}
		if node.Parent >= int32(i) {
			return nil, fmt.Errorf("rig definition '%s' node '%s' references parent %d which is not an earlier node", rig.Name, node.Name, node.Parent)
		}
		if node.Parent < -1 {
			return nil, fmt.Errorf("rig definition '%s' node '%s' has invalid parent %d", rig.Name, node.Name, node.Parent)
		}
	}
	return &rig, nil
}

// Skeleton returns the runtime skeleton for the rig.
func (r *RigDefinition) Skeleton() Skeleton {
	nodes := make([]SkeletonNode, len(r.Nodes))
	for i, n := range r.Nodes {
		nodes[i] = SkeletonNode{Name: n.Name, ParentIndex: n.Parent}
	}
	return Skeleton{Nodes: nodes}
}
