package model

import "time"

// Status describes where a node is in its fetch lifecycle.
//
// The state machine per node is:
//
//	Pending -> Fetching -> {Done | Error}
//	Error   -> Fetching -> {Done | Error}
//
// Done is terminal. StatusFetching is an in-memory marker only; a
// persisted snapshot never contains it because the crawler settles
// every node it touched before the driver saves.
type Status string

// Node status values.
const (
	// StatusPending means the node's children have not been fetched yet.
	StatusPending Status = "pending"

	// StatusFetching means a fetch for this node's children is in flight.
	// Never persisted.
	StatusFetching Status = "fetching"

	// StatusError means the last fetch for this node failed transiently;
	// the node carries a single error-sentinel child and will be retried
	// on the next resume pass.
	StatusError Status = "error"

	// StatusDone means this node and its entire subtree are complete.
	StatusDone Status = "done"
)

// Node is one entry at some level of the harvest hierarchy: a state,
// a district, a court establishment, or a judge record.
//
// Design decision: All four levels share one node type rather than
// level-specific structs because the descent rule, the merge rule, and
// the persistence format are identical at every level. The level is
// implied by depth, and level-specific meaning lives only in the
// flattener.
type Node struct {
	// URL is the drill-down target for this node's children.
	// Empty means the node has nothing beneath it (typical for judge
	// rows and for summary rows without links).
	URL string `json:"url"`

	// Timestamp is when this node's own row was captured.
	Timestamp time.Time `json:"timestamp"`

	// Fields holds the extracted cell values for this node's own row,
	// including the synthetic timestamp and url columns.
	Fields Fields `json:"fields,omitempty"`

	// Children are the fetched child nodes in table display order.
	// Empty until this node's URL has been fetched at least once.
	Children []*Node `json:"children,omitempty"`

	// Status is the node's position in the fetch lifecycle.
	Status Status `json:"status"`

	// ErrorFlag marks an error-sentinel row standing in for a failed
	// fetch. Sentinel nodes are replaced on the next resume pass.
	ErrorFlag bool `json:"error_flag,omitempty"`
}

// NewSentinelNode returns the synthetic single row that stands in for a
// failed fetch of url. It is flagged for retry on the next pass.
func NewSentinelNode(url string) *Node {
	return &Node{
		URL:       url,
		Timestamp: time.Now(),
		Status:    StatusError,
		ErrorFlag: true,
	}
}

// HasSentinelChild reports whether this node's recorded children are a
// stand-in for a failed fetch.
func (n *Node) HasSentinelChild() bool {
	for _, c := range n.Children {
		if c.ErrorFlag {
			return true
		}
	}
	return false
}

// Complete reports whether the completion invariant holds for this
// node: no error-sentinel child, and every child with a non-empty URL
// is itself Done. A node with an empty URL is complete as soon as its
// fields are populated, since it has no children to wait on.
//
// Complete only inspects recorded children; it cannot tell a node that
// was never fetched from one whose fetch legitimately returned no rows.
// The crawler is the authority for setting Status because it knows
// whether a fetch happened this pass.
func (n *Node) Complete() bool {
	if n.ErrorFlag {
		return false
	}
	if n.URL == "" {
		return true
	}
	for _, c := range n.Children {
		if c.ErrorFlag {
			return false
		}
		if c.URL != "" && c.Status != StatusDone {
			return false
		}
	}
	return true
}
