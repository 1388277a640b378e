package rewind

import (
	"github.com/TheBitDrifter/mask"
)

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
)

// compositeNode tests its own components as one mask, then its child nodes.
type compositeNode struct {
	op         Operation
	mask       mask.Mask
	components []Component
	children   []QueryNode
}

type query struct {
	root QueryNode
}

func newQuery() Query {
	return &query{}
}

func componentMask(components []Component) mask.Mask {
	var m mask.Mask
	for _, c := range components {
		m.Mark(uint32(c.AllTypeID()))
	}
	return m
}

func (n *compositeNode) Evaluate(archetype mask.Mask) bool {
	switch n.op {
	case OpAnd:
		if !archetype.ContainsAll(n.mask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(archetype) {
				return false
			}
		}
		return true
	case OpOr:
		if archetype.ContainsAny(n.mask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(archetype) {
				return true
			}
		}
		return false
	case OpNot:
		for _, child := range n.children {
			if child.Evaluate(archetype) {
				return false
			}
		}
		return archetype.ContainsNone(n.mask)
	}
	return false
}

// Components lists every component the node and its children test.
func (n *compositeNode) Components() []Component {
	out := append([]Component(nil), n.components...)
	for _, child := range n.children {
		out = append(out, child.Components()...)
	}
	return out
}

func (q *query) And(items ...interface{}) QueryNode {
	return q.node(OpAnd, items)
}

func (q *query) Or(items ...interface{}) QueryNode {
	return q.node(OpOr, items)
}

func (q *query) Not(items ...interface{}) QueryNode {
	return q.node(OpNot, items)
}

// node builds a node from components, component slices and nested nodes. The first node
// built becomes the root of q.
func (q *query) node(op Operation, items []interface{}) QueryNode {
	n := &compositeNode{op: op}
	for _, item := range items {
		switch v := item.(type) {
		case Component:
			n.components = append(n.components, v)
		case []Component:
			n.components = append(n.components, v...)
		case QueryNode:
			n.children = append(n.children, v)
		}
	}
	n.mask = componentMask(n.components)
	if q.root == nil {
		q.root = n
	}
	return n
}

func (q *query) Evaluate(archetype mask.Mask) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(archetype)
}

func (q *query) Components() []Component {
	if q.root == nil {
		return nil
	}
	return q.root.Components()
}
