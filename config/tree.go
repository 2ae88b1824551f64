// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package config implements an INI-like configuration text format:
// [section] headers, key=value pairs, quoted strings with C escapes,
// comma-separated arrays, "/" subsection separators inside names,
// ";"/"#" line comments, "\"-newline continuations, and multisection
// promotion when a [section] header repeats. No existing library
// implements this exact grammar, so the reader is hand-rolled.
package config

// Node is one entry of a Tree: exactly one of Scalar, Array, Section
// or Multi is populated, an explicit sum type rather than one map
// overloaded to be both a leaf and a container.
type Node struct {
	Scalar  *string
	Array   []string
	Section *Tree
	Multi   []*Tree
}

// IsLeaf reports whether n carries a scalar or array value rather than
// a subsection.
func (n *Node) IsLeaf() bool {
	return n.Scalar != nil || n.Array != nil
}

// Tree is an ordered collection of named Nodes: ordered so that
// Serialize reproduces the source's key order.
type Tree struct {
	order []string
	nodes map[string]*Node
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*Node)}
}

// Keys returns the top-level key names in insertion order.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Get returns the node stored at name, or false if absent.
func (t *Tree) Get(name string) (*Node, bool) {
	n, ok := t.nodes[name]
	return n, ok
}

// Section returns the single subsection at name, or nil if name is
// absent, a multisection, or a leaf.
func (t *Tree) Section(name string) *Tree {
	n, ok := t.nodes[name]
	if !ok || n.Section == nil {
		return nil
	}
	return n.Section
}

// MultiSection returns the ordered subsections at name, or nil if name
// is not a multisection.
func (t *Tree) MultiSection(name string) []*Tree {
	n, ok := t.nodes[name]
	if !ok {
		return nil
	}
	return n.Multi
}

// Value returns the scalar string at name.
func (t *Tree) Value(name string) (string, bool) {
	n, ok := t.nodes[name]
	if !ok || n.Scalar == nil {
		return "", false
	}
	return *n.Scalar, true
}

// Array returns the array value at name.
func (t *Tree) Array(name string) ([]string, bool) {
	n, ok := t.nodes[name]
	if !ok || n.Array == nil {
		return nil, false
	}
	return n.Array, true
}

func (t *Tree) put(name string, n *Node) {
	if _, exists := t.nodes[name]; !exists {
		t.order = append(t.order, name)
	}
	t.nodes[name] = n
}

// SetValue stores a scalar leaf at name, creating intermediate
// subsections for any "/"-separated path components.
func (t *Tree) SetValue(path string, value string) {
	tree, leaf := t.navigate(path)
	v := value
	tree.put(leaf, &Node{Scalar: &v})
}

// SetArray stores an array leaf at name.
func (t *Tree) SetArray(path string, values []string) {
	tree, leaf := t.navigate(path)
	tree.put(leaf, &Node{Array: append([]string(nil), values...)})
}

// getOrCreateSection returns the subsection at name, creating a plain
// (non-multi) one if absent. If name currently holds a multisection,
// the most recently added member is treated as the active context.
func (t *Tree) getOrCreateSection(name string) *Tree {
	n, ok := t.nodes[name]
	if !ok {
		sub := NewTree()
		t.put(name, &Node{Section: sub})
		return sub
	}
	switch {
	case n.Section != nil:
		return n.Section
	case len(n.Multi) > 0:
		return n.Multi[len(n.Multi)-1]
	default:
		sub := NewTree()
		n.Section = sub
		return sub
	}
}

// promoteSection opens a fresh subsection at name. If name already
// holds a single Section, both are combined into a Multi array in
// order: a second [foo] header promotes the earlier [foo] to a
// multisection.
func (t *Tree) promoteSection(name string) *Tree {
	sub := NewTree()
	n, ok := t.nodes[name]
	if !ok {
		t.put(name, &Node{Section: sub})
		return sub
	}
	switch {
	case n.Section != nil:
		n.Multi = []*Tree{n.Section, sub}
		n.Section = nil
	case len(n.Multi) > 0:
		n.Multi = append(n.Multi, sub)
	default:
		n.Section = sub
	}
	return sub
}

// navigate walks a "/"-separated path, creating intermediate
// subsections, and returns the final tree plus the leaf key name.
func (t *Tree) navigate(path string) (*Tree, string) {
	parts := splitPath(path)
	tree := t
	for _, p := range parts[:len(parts)-1] {
		tree = tree.getOrCreateSection(p)
	}
	return tree, parts[len(parts)-1]
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

// Equal reports whether t and other have the same structure: the same
// keys (order-independent), the same scalar/array values, and
// recursively equal subsections/multisections. Used by the parse ->
// serialize -> reparse round-trip tests.
func (t *Tree) Equal(other *Tree) bool {
	if other == nil || len(t.nodes) != len(other.nodes) {
		return false
	}
	for name, n := range t.nodes {
		on, ok := other.nodes[name]
		if !ok || !nodeEqual(n, on) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b *Node) bool {
	switch {
	case a.Scalar != nil:
		return b.Scalar != nil && *a.Scalar == *b.Scalar
	case a.Array != nil:
		if b.Array == nil || len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if a.Array[i] != b.Array[i] {
				return false
			}
		}
		return true
	case a.Section != nil:
		return b.Section != nil && a.Section.Equal(b.Section)
	case len(a.Multi) > 0:
		if len(b.Multi) != len(a.Multi) {
			return false
		}
		for i := range a.Multi {
			if !a.Multi[i].Equal(b.Multi[i]) {
				return false
			}
		}
		return true
	default:
		return b.Scalar == nil && b.Array == nil && b.Section == nil && len(b.Multi) == 0
	}
}
