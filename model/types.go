package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned when a workflow document is missing a required field.
var ErrInvalidFormat = errors.New("invalid workflow format")

// ID is a node identifier as it appeared in the document. It keeps the JSON kind,
// so the string "1" and the number 1 are different ids. The zero ID means absent.
type ID struct {
	lit string // canonical JSON literal
}

func StringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{lit: string(b)}
}

func NumberID(f float64) ID {
	return ID{lit: formatNumber(f)}
}

func (id ID) IsZero() bool { return id.lit == "" }

// String renders the id the way it is interpolated into names: strings
// unquoted, absent ids as "undefined".
func (id ID) String() string {
	switch {
	case id.lit == "":
		return "undefined"
	case id.lit[0] == '"':
		var s string
		_ = json.Unmarshal([]byte(id.lit), &s)
		return s
	case id.lit[0] == '{':
		return "[object Object]"
	default:
		return id.lit
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*id = ID{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*id = ID{lit: buf.String()}
	case 't', 'f', 'n':
		*id = ID{lit: string(data)}
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = NumberID(f)
	}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.lit == "" {
		return []byte("null"), nil
	}
	return []byte(id.lit), nil
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON accepts any value; coordinates that are not numbers or
// numeric strings count as 0.
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw struct {
		X json.RawMessage `json:"x"`
		Y json.RawMessage `json:"y"`
	}
	*p = Position{}
	if !isObject(data) {
		return nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.X = looseNumber(raw.X)
	p.Y = looseNumber(raw.Y)
	return nil
}

type EdgeConnection struct {
	Type string `json:"type"`
}

func (c *EdgeConnection) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type json.RawMessage `json:"type"`
	}
	*c = EdgeConnection{}
	if !isObject(data) {
		return nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Type = looseString(raw.Type)
	return nil
}

type Edge struct {
	Source     ID              `json:"source"`
	Target     ID              `json:"target"`
	Connection *EdgeConnection `json:"connection,omitempty"`
}

// UnmarshalJSON never rejects an edge; unusable values decode as absent.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw struct {
		Source     ID              `json:"source"`
		Target     ID              `json:"target"`
		Connection *EdgeConnection `json:"connection"`
	}
	*e = Edge{}
	if !isObject(data) {
		return nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Edge(raw)
	return nil
}

// ConnectionType returns the edge's connection type, "main" when unset.
func (e Edge) ConnectionType() string {
	if e.Connection == nil || e.Connection.Type == "" {
		return "main"
	}
	return e.Connection.Type
}

type Node struct {
	ID          ID             `json:"id"`
	Label       string         `json:"label,omitempty"`
	Name        string         `json:"name,omitempty"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Position    *Position      `json:"position,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// UnmarshalJSON decodes a node without checking field types. Scalars are
// turned into text for the string fields, and parameters are spread into a
// map the same way an object spread would.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          ID              `json:"id"`
		Label       json.RawMessage `json:"label"`
		Name        json.RawMessage `json:"name"`
		Type        json.RawMessage `json:"type"`
		Description json.RawMessage `json:"description"`
		Position    *Position       `json:"position"`
		Parameters  json.RawMessage `json:"parameters"`
	}
	*n = Node{}
	if !isObject(data) {
		return nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	params, err := spreadParameters(raw.Parameters)
	if err != nil {
		return err
	}
	*n = Node{
		ID:          raw.ID,
		Label:       looseString(raw.Label),
		Name:        looseString(raw.Name),
		Type:        looseString(raw.Type),
		Description: looseString(raw.Description),
		Position:    raw.Position,
		Parameters:  params,
	}
	return nil
}

// DisplayName resolves the name a node is known by in the compiled workflow:
// label, then name, then "Node-<id>".
func (n Node) DisplayName() string {
	switch {
	case n.Label != "":
		return n.Label
	case n.Name != "":
		return n.Name
	default:
		return "Node-" + n.ID.String()
	}
}

// Workflow is the generic graph document accepted by the compiler.
// Nodes and Edges are nil when absent from the JSON document.
type Workflow struct {
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (w *Workflow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  json.RawMessage `json:"name"`
		Nodes []Node          `json:"nodes"`
		Edges []Edge          `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = Workflow{Name: looseString(raw.Name), Nodes: raw.Nodes, Edges: raw.Edges}
	return nil
}

// Validate checks that both nodes and edges are present. Empty lists are fine.
func (w *Workflow) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: workflow is required", ErrInvalidFormat)
	}
	if w.Nodes == nil {
		return fmt.Errorf("%w: nodes is required", ErrInvalidFormat)
	}
	if w.Edges == nil {
		return fmt.Errorf("%w: edges is required", ErrInvalidFormat)
	}
	return nil
}

// CompileRequest is the body accepted by the compile endpoint.
type CompileRequest struct {
	Workflow *Workflow `json:"workflow"`
}
