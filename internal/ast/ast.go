// Package ast holds the minimal view of candidate programs the engine needs:
// node kinds and children, enough to hash, measure and ship a tree. Parsing
// and the mutation operators live outside this module.
package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"
)

// Node is one node of a candidate program's abstract syntax tree.
type Node interface {
	Kind() string
	Children() []Node
}

// Valued is implemented by nodes carrying a literal (constants, identifiers).
// The value takes part in the structural hash.
type Valued interface {
	Value() string
}

// OriginKind marks a tree standing for the problem's unmodified source program.
const OriginKind = "<origin>"

// Tree is the concrete, serialisable Node used on the executor wire and in tests.
type Tree struct {
	Type    string  `json:"type" msgpack:"t"`
	Literal string  `json:"literal,omitempty" msgpack:"v,omitempty"`
	Nodes   []*Tree `json:"nodes,omitempty" msgpack:"c,omitempty"`
}

// New builds a tree node.
func New(kind string, children ...*Tree) *Tree {
	return &Tree{Type: kind, Nodes: children}
}

// Leaf builds a literal node.
func Leaf(kind, literal string) *Tree {
	return &Tree{Type: kind, Literal: literal}
}

// Origin returns the tree that asks an executor to run the original program.
func Origin() *Tree {
	return &Tree{Type: OriginKind}
}

func (t *Tree) Kind() string  { return t.Type }
func (t *Tree) Value() string { return t.Literal }

func (t *Tree) Children() []Node {
	nodes := make([]Node, len(t.Nodes))
	for i, c := range t.Nodes {
		nodes[i] = c
	}
	return nodes
}

// IsOrigin reports whether n stands for the original program.
func IsOrigin(n Node) bool {
	return n != nil && n.Kind() == OriginKind
}

// From converts any Node into a Tree, e.g. before serialisation.
func From(n Node) *Tree {
	if n == nil {
		return nil
	}
	if t, ok := n.(*Tree); ok {
		return t
	}
	t := &Tree{Type: n.Kind()}
	if v, ok := n.(Valued); ok {
		t.Literal = v.Value()
	}
	for _, c := range n.Children() {
		t.Nodes = append(t.Nodes, From(c))
	}
	return t
}

// Hash returns the structural hash of n: equal shapes, kinds and literals
// give equal hashes regardless of node identity.
func Hash(n Node) string {
	h := sha256.New()
	writeNode(h, n)
	return hex.EncodeToString(h.Sum(nil))
}

func writeNode(h hash.Hash, n Node) {
	if n == nil {
		h.Write([]byte{0})
		return
	}
	kind := n.Kind()
	h.Write([]byte(strconv.Itoa(len(kind))))
	h.Write([]byte(kind))
	if v, ok := n.(Valued); ok {
		lit := v.Value()
		h.Write([]byte{'='})
		h.Write([]byte(strconv.Itoa(len(lit))))
		h.Write([]byte(lit))
	}
	children := n.Children()
	h.Write([]byte{'('})
	h.Write([]byte(strconv.Itoa(len(children))))
	for _, c := range children {
		writeNode(h, c)
	}
	h.Write([]byte{')'})
}

// Walk visits n and its descendants depth first. key identifies the node by
// its child positions from the root ("0", "0.1", "0.1.0", ...).
func Walk(n Node, fn func(key string, n Node)) {
	walk(n, "0", fn)
}

func walk(n Node, key string, fn func(string, Node)) {
	if n == nil {
		return
	}
	fn(key, n)
	for i, c := range n.Children() {
		walk(c, key+"."+strconv.Itoa(i), fn)
	}
}

// Size counts the nodes of n, n included.
func Size(n Node) int {
	count := 0
	Walk(n, func(string, Node) { count++ })
	return count
}
