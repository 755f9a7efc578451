package ast

import (
	"encoding/json"
)

// Node represents a parsed query expression.
//
// This is a sealed interface - only types in this package implement it.
//
// Node types:
//   - And: all children must match (implicit adjacency in the query string)
//   - Or: any child must match (explicit OR keyword)
//   - Selector: a key:value clause from the closed selector vocabulary
//   - Text: free-form search text (quoted = phrase, unquoted = term)
//
// A nil Node means "no filter" - an empty or whitespace-only query.
type Node interface {
	node() // Marker method - seals interface to this package

	// Negated reports whether the node carries a leading '-'.
	Negated() bool

	// SetNegated updates the negation flag. Used by the parser when
	// merging a leading '-' into the following atom.
	SetNegated(bool)
}

// negatable provides the shared Negated flag for all node types.
type negatable struct {
	Neg bool `json:"negated,omitempty"`
}

func (n *negatable) Negated() bool       { return n.Neg }
func (n *negatable) SetNegated(neg bool) { n.Neg = neg }

// And is a conjunction of child nodes.
//
// Invariants (established by Normalize):
//   - never directly contains an unnegated And child (flattened)
//   - never has fewer than two children (singletons collapse, empties drop)
type And struct {
	negatable
	Children []Node
}

func (*And) node() {}

// Or is a disjunction of child nodes. Same structural invariants as And.
//
// At plan-build time each child is compiled independently against the
// full domain, never against the enclosing AND context.
type Or struct {
	negatable
	Children []Node
}

func (*Or) node() {}

// Selector is a key:value clause, e.g. from:bruce or messages:>=10.
//
// Conditions is non-nil only for selectors that support bracketed
// dependent clauses (from, has, tag).
type Selector struct {
	negatable
	Key        Key
	Value      string
	Quoted     bool
	Conditions []Condition
}

func (*Selector) node() {}

// Text is free-form search text. Quoted distinguishes phrase matching
// from term matching.
type Text struct {
	negatable
	Value  string
	Quoted bool
}

func (*Text) node() {}

// Condition is a sub-clause inside a selector's bracket list, e.g. the
// messages:>=10 in from:bruce[messages:>=10]. Its vocabulary depends on
// the parent selector (and, for has, on the parent's value).
type Condition struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Quoted bool   `json:"quoted,omitempty"`
}

// MarshalJSON emits a tagged representation for CLI output and golden
// files, e.g. {"type":"selector","key":"from","value":"bruce"}.
func (n *And) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Negated  bool   `json:"negated,omitempty"`
		Children []Node `json:"children"`
	}{"and", n.Neg, n.Children})
}

func (n *Or) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Negated  bool   `json:"negated,omitempty"`
		Children []Node `json:"children"`
	}{"or", n.Neg, n.Children})
}

func (n *Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string      `json:"type"`
		Negated    bool        `json:"negated,omitempty"`
		Key        Key         `json:"key"`
		Value      string      `json:"value"`
		Quoted     bool        `json:"quoted,omitempty"`
		Conditions []Condition `json:"conditions,omitempty"`
	}{"selector", n.Neg, n.Key, n.Value, n.Quoted, n.Conditions})
}

func (n *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Negated bool   `json:"negated,omitempty"`
		Value   string `json:"value"`
		Quoted  bool   `json:"quoted,omitempty"`
	}{"text", n.Neg, n.Value, n.Quoted})
}
