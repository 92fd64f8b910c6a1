// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package ast

import (
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// Node is a single vertex of the abstract syntax tree.  A node exclusively
// owns its children; the Target back-reference is a weak lookup pointer into
// the tree which is cleared on clone and invalidated when its target is
// removed.  Child ordering is semantically meaningful per kind (e.g. a For
// node holds [init, cond, step, body], a Ternary [cond, then, else], an
// assignment [lhs, rhs]).
type Node struct {
	// Kind of this node.
	Kind Kind
	// Identifier or operator name (kind dependent).
	Name string
	// Ordered children of this node.
	Children []*Node
	// Attribute mapping, each value being a constant expression.
	Attributes map[string]*Node
	// Constant payload (Constant kind only).
	Value bitvec.Vector
	// Floating point payload (RealValue kind only).
	RealValue float64
	// Declaration flags.
	IsReg    bool
	IsSigned bool
	IsInput  bool
	IsOutput bool
	IsString bool
	PortID   int
	// Range cache, filled in by the elaborator for Range and Wire nodes.
	RangeValid bool
	RangeLeft  int
	RangeRight int
	// BasicPrep marks a node which has reached a local fixed point, allowing
	// redundant re-simplification to exit early.  Cleared by ReplaceWith.
	BasicPrep bool
	// Target is the declaration a use refers to.  This is not ownership.
	Target *Node
	// Source location.
	Filename string
	Line     int
}

// NewNode constructs a node of a given kind with the given children.
func NewNode(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// NewNamed constructs a node of a given kind with a given name.
func NewNamed(kind Kind, name string, children ...*Node) *Node {
	return &Node{Kind: kind, Name: name, Children: children}
}

// ConstBits constructs a Constant node holding a given vector.
func ConstBits(value bitvec.Vector, signed bool) *Node {
	return &Node{Kind: KindConstant, Value: value, IsSigned: signed}
}

// ConstInt constructs a Constant node holding a given integer at a given
// width.  A negative width means the default of 32 bits.
func ConstInt(value int64, signed bool, width int) *Node {
	if width < 0 {
		width = 32
	}
	//
	return ConstBits(bitvec.FromInt64(value, width), signed)
}

// ConstString constructs a Constant node holding the ASCII bits of a given
// string.
func ConstString(value string) *Node {
	n := ConstBits(bitvec.FromString(value), false)
	n.IsString = true
	n.Name = value
	//
	return n
}

// NewReal constructs a RealValue node.
func NewReal(value float64) *Node {
	return &Node{Kind: KindRealValue, RealValue: value}
}

// Clone creates a deep copy of this node.  The Target back-reference is
// deliberately not carried over, since a clone is destined for a new context
// in which names must be re-resolved.
func (p *Node) Clone() *Node {
	n := *p
	n.Target = nil
	n.Children = make([]*Node, len(p.Children))
	//
	for i, c := range p.Children {
		n.Children[i] = c.Clone()
	}
	//
	if p.Attributes != nil {
		n.Attributes = make(map[string]*Node, len(p.Attributes))
		for k, v := range p.Attributes {
			n.Attributes[k] = v.Clone()
		}
	}
	//
	if p.Kind == KindConstant {
		n.Value = p.Value.Clone()
	}
	//
	return &n
}

// ReplaceWith swaps the content of a replacement node into this node,
// preserving this node's identity (pointers held by callers on the recursion
// stack remain valid) and its source location.  The fixed-point marker is
// cleared, since the node's content has changed.
func (p *Node) ReplaceWith(repl *Node) {
	filename, line := p.Filename, p.Line
	clone := repl.Clone()
	*p = *clone
	p.Filename = filename
	p.Line = line
	p.BasicPrep = false
}

// DeleteChildren removes all children from this node.
func (p *Node) DeleteChildren() {
	p.Children = nil
}

// SetAttribute assigns an attribute of this node.
func (p *Node) SetAttribute(name string, value *Node) {
	if p.Attributes == nil {
		p.Attributes = make(map[string]*Node)
	}
	//
	p.Attributes[name] = value
}

// GetBoolAttribute checks whether a given attribute is present and holds a
// non-zero constant.
func (p *Node) GetBoolAttribute(name string) bool {
	attr, ok := p.Attributes[name]
	if !ok {
		return false
	}
	//
	return attr.Kind == KindConstant && attr.Value.AsBool()
}

// IsConst checks whether this node is a constant of either flavour.
func (p *Node) IsConst() bool {
	return p.Kind == KindConstant || p.Kind == KindRealValue
}

// Integer interprets a Constant node's payload as an unsigned machine
// integer.
func (p *Node) Integer() int {
	return p.Value.AsInt()
}

// AsBool interprets a constant node as a boolean.
func (p *Node) AsBool() bool {
	if p.Kind == KindRealValue {
		return p.RealValue != 0
	}
	//
	return p.Value.AsBool()
}

// AsReal interprets a constant node as a floating point number.
func (p *Node) AsReal(signed bool) float64 {
	if p.Kind == KindRealValue {
		return p.RealValue
	}
	//
	return p.Value.AsFloat(signed && p.IsSigned)
}

// BitsAt returns this Constant node's payload extended or truncated to a
// given width, respecting a given signedness.  A negative width returns the
// natural payload.
func (p *Node) BitsAt(width int, signed bool) bitvec.Vector {
	return p.Value.Extend(width, signed)
}

// Equal checks structural equality of two nodes, ignoring source locations,
// caches and back-references.
func (p *Node) Equal(other *Node) bool {
	if p.Kind != other.Kind || p.Name != other.Name ||
		p.IsReg != other.IsReg || p.IsSigned != other.IsSigned ||
		p.IsInput != other.IsInput || p.IsOutput != other.IsOutput ||
		p.IsString != other.IsString || p.PortID != other.PortID ||
		p.RealValue != other.RealValue ||
		len(p.Children) != len(other.Children) ||
		len(p.Attributes) != len(other.Attributes) {
		return false
	}
	//
	if p.Kind == KindConstant && !p.Value.Equal(other.Value) {
		return false
	}
	//
	for i, c := range p.Children {
		if !c.Equal(other.Children[i]) {
			return false
		}
	}
	//
	for k, v := range p.Attributes {
		if w, ok := other.Attributes[k]; !ok || !v.Equal(w) {
			return false
		}
	}
	//
	return true
}

// Contains checks whether a given node occurs within the subtree rooted at
// this node.
func (p *Node) Contains(other *Node) bool {
	if p == other {
		return true
	}
	//
	for _, c := range p.Children {
		if c.Contains(other) {
			return true
		}
	}
	//
	return false
}

// MemInfo computes the element width, size and address width of a Memory
// node.  The size counts addresses from zero, i.e. it is one more than the
// highest address of the range.  The first child must be the (canonicalised) bit range
// and the second the address range.
func (p *Node) MemInfo() (width int, size int, addrBits int) {
	if p.Kind != KindMemory {
		panic("MemInfo on non-memory node")
	}
	//
	width = p.Children[0].RangeLeft - p.Children[0].RangeRight + 1
	size = p.Children[1].RangeLeft - p.Children[1].RangeRight
	//
	if size < 0 {
		size = -size
	}
	//
	lo := p.Children[1].RangeRight
	if p.Children[1].RangeLeft < lo {
		lo = p.Children[1].RangeLeft
	}
	//
	size += lo + 1
	//
	addrBits = 1
	for (1 << uint(addrBits)) < size {
		addrBits++
	}
	//
	return width, size, addrBits
}
