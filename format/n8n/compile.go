package n8n

import (
	"fmt"
	"maps"

	"github.com/Tsinling0525/flowc/model"
)

const (
	// TypeNamespace prefixes every compiled node type.
	TypeNamespace = "ai-sdr"
	// DefaultWorkflowName is used when the input document has no name.
	DefaultWorkflowName = "Compiled Workflow"

	nodeTypeVersion = 1
)

// UnresolvedEdge describes an input edge left out of the compiled connections
// because one of its endpoints does not match any node id.
type UnresolvedEdge struct {
	Index         int      `json:"index"`
	Source        model.ID `json:"source"`
	Target        model.ID `json:"target"`
	MissingSource bool     `json:"missingSource,omitempty"`
	MissingTarget bool     `json:"missingTarget,omitempty"`
}

func (u UnresolvedEdge) String() string {
	switch {
	case u.MissingSource && u.MissingTarget:
		return fmt.Sprintf("edge %d: source %q and target %q not found", u.Index, u.Source, u.Target)
	case u.MissingSource:
		return fmt.Sprintf("edge %d: source %q not found", u.Index, u.Source)
	default:
		return fmt.Sprintf("edge %d: target %q not found", u.Index, u.Target)
	}
}

// Result is the outcome of compiling one workflow.
type Result struct {
	Workflow   Workflow
	Unresolved []UnresolvedEdge
}

// Compile converts a generic workflow into the n8n workflow format.
// The input is expected to have passed model.Workflow.Validate; Compile itself never fails.
func Compile(in model.Workflow) Result {
	nodes := make([]Node, len(in.Nodes))
	byID := make(map[model.ID]model.Node, len(in.Nodes))

	for i, n := range in.Nodes {
		nodes[i] = compileNode(n)
		// first occurrence wins on duplicate ids
		if _, seen := byID[n.ID]; !seen {
			byID[n.ID] = n
		}
	}

	connections := map[string]Connections{}
	var unresolved []UnresolvedEdge
	for i, e := range in.Edges {
		src, srcOK := byID[e.Source]
		dst, dstOK := byID[e.Target]
		if !srcOK || !dstOK {
			unresolved = append(unresolved, UnresolvedEdge{
				Index:         i,
				Source:        e.Source,
				Target:        e.Target,
				MissingSource: !srcOK,
				MissingTarget: !dstOK,
			})
			continue
		}

		name := src.DisplayName()
		conns, ok := connections[name]
		if !ok {
			conns = Connections{Main: [][]Connection{{}}}
		}
		conns.Main[0] = append(conns.Main[0], Connection{
			Node:  dst.DisplayName(),
			Type:  e.ConnectionType(),
			Index: 0,
		})
		connections[name] = conns
	}

	name := in.Name
	if name == "" {
		name = DefaultWorkflowName
	}

	return Result{
		Workflow: Workflow{
			Name:        name,
			Nodes:       nodes,
			Connections: connections,
			Active:      false,
		},
		Unresolved: unresolved,
	}
}

func compileNode(n model.Node) Node {
	kind := n.Type
	if kind == "" {
		kind = "undefined"
	}

	var pos [2]float64
	if n.Position != nil {
		pos = [2]float64{n.Position.X, n.Position.Y}
	}

	params := make(map[string]any, len(n.Parameters)+1)
	maps.Copy(params, n.Parameters)
	params["description"] = n.Description

	return Node{
		Name:        n.DisplayName(),
		Type:        TypeNamespace + "." + kind,
		Position:    pos,
		Parameters:  params,
		TypeVersion: nodeTypeVersion,
	}
}
