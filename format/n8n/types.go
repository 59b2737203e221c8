package n8n

// Workflow represents the n8n workflow format
type Workflow struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name"`
	Nodes       []Node                 `json:"nodes"`
	Connections map[string]Connections `json:"connections"`
	Active      bool                   `json:"active"`
	Settings    map[string]any         `json:"settings,omitempty"`
}

// Node represents an n8n node
type Node struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Position    [2]float64     `json:"position"`
	Parameters  map[string]any `json:"parameters"`
	TypeVersion float64        `json:"typeVersion"`
}

// Connections represents the outgoing connections of one n8n node
type Connections struct {
	Main [][]Connection `json:"main"`
}

// Connection represents a single connection
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}
