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
package elab

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// lowerAssert splits an assertion inside a block into paired check and
// enable wires: the enclosing process assigns both (defaulting to X and
// zero), whilst a module-level Assert records the pair for downstream
// consumption.
func (p *Elaborator) lowerAssert(n *ast.Node) (*ast.Node, error) {
	if p.topBlock == nil {
		return nil, errorAt(n, InternalInvariant, "assertion outside of a process")
	}
	//
	prefix := fmt.Sprintf("$assert$%s:%d$%d", n.Filename, n.Line, p.nextID())
	idCheck, idEn := prefix+"_CHECK", prefix+"_EN"
	//
	wireCheck := ast.NewNamed(ast.KindWire, idCheck)
	p.module.Children = append(p.module.Children, wireCheck)
	p.scope[idCheck] = wireCheck
	//
	if _, err := p.simplifyFully(wireCheck, true, false, false, 1, -1, false, false); err != nil {
		return nil, err
	}
	//
	wireEn := ast.NewNamed(ast.KindWire, idEn)
	p.module.Children = append(p.module.Children, wireEn)
	// The enable starts out cleared.
	enInit := ast.NewNode(ast.KindInitial, ast.NewNode(ast.KindBlock,
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idEn), ast.ConstInt(0, false, 1))))
	p.module.Children = append(p.module.Children, enInit)
	p.scope[idEn] = wireEn
	//
	if _, err := p.simplifyFully(wireEn, true, false, false, 1, -1, false, false); err != nil {
		return nil, err
	}
	// Default assignments at the head of the process.
	defaults := ast.NewNode(ast.KindBlock,
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idCheck),
			ast.ConstBits(bitvec.NewFilled(1, bitvec.X), false)),
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idEn),
			ast.ConstInt(0, false, 1)))
	//
	p.topBlock.Children = insertChildren(p.topBlock.Children, 0, []*ast.Node{defaults})
	// The assertion itself becomes the pair of live assignments.
	repl := ast.NewNode(ast.KindBlock,
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idCheck),
			ast.NewNode(ast.KindReduceBool, n.Children[0].Clone())),
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idEn),
			ast.ConstInt(1, false, 1)))
	// Record the module-level assertion referencing the two wires.
	assertNode := ast.NewNode(ast.KindAssert,
		ast.NewNamed(ast.KindIdentifier, idCheck),
		ast.NewNamed(ast.KindIdentifier, idEn))
	assertNode.Attributes = n.Attributes
	n.Attributes = nil
	//
	p.module.Children = append(p.module.Children, assertNode)
	//
	return repl, nil
}

// rewriteMemoryWrite replaces an assignment to a memory with an explicit
// write port: ADDR, DATA and EN wires are synthesised at module level,
// default all-X/zero assignments are inserted at the head of the enclosing
// process, and a MemWr node is recorded on the module.  Blocking writes are
// treated as non-blocking, with a warning.
func (p *Elaborator) rewriteMemoryWrite(n *ast.Node) (*ast.Node, error) {
	if p.topBlock == nil {
		return nil, errorAt(n, InternalInvariant, "memory write outside of a process")
	}
	//
	lhs := n.Children[0]
	mem := lhs.Target
	//
	if n.Kind == ast.KindAssignEq {
		log.Warnf("%s:%d: blocking assignment to memory %s is handled like a non-blocking assignment",
			n.Filename, n.Line, lhs.Name)
	}
	//
	memWidth, _, addrBits := mem.MemInfo()
	//
	prefix := fmt.Sprintf("$memwr$%s$%s:%d$%d", lhs.Name, n.Filename, n.Line, p.nextID())
	idAddr, idData, idEn := prefix+"_ADDR", prefix+"_DATA", prefix+"_EN"
	//
	names := []string{idAddr, idData, idEn}
	widths := []int{addrBits, memWidth, memWidth}
	//
	for i, id := range names {
		wire := ast.NewNamed(ast.KindWire, id,
			ast.NewNode(ast.KindRange, ast.ConstInt(int64(widths[i]-1), true, -1), ast.ConstInt(0, true, -1)))
		//
		p.module.Children = append(p.module.Children, wire)
		p.scope[id] = wire
		//
		if _, err := p.simplifyFully(wire, true, false, false, 1, -1, false, false); err != nil {
			return nil, err
		}
	}
	// Default assignments at the head of the process: address and data are
	// all-X, the enable mask all zero.
	defaults := ast.NewNode(ast.KindBlock,
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idAddr),
			ast.ConstBits(bitvec.NewFilled(addrBits, bitvec.X), false)),
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idData),
			ast.ConstBits(bitvec.NewFilled(memWidth, bitvec.X), false)),
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idEn),
			ast.ConstInt(0, false, memWidth)))
	//
	p.topBlock.Children = insertChildren(p.topBlock.Children, 0, []*ast.Node{defaults})
	// The assignment itself becomes the live port assignments.
	repl := ast.NewNode(ast.KindBlock,
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idAddr),
			lhs.Children[0].Children[0].Clone()),
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idData),
			n.Children[1].Clone()),
		ast.NewNode(ast.KindAssignLe, ast.NewNamed(ast.KindIdentifier, idEn),
			ast.ConstBits(bitvec.NewFilled(memWidth, bitvec.One), false)))
	// Record the write port on the module.
	wrnode := ast.NewNamed(ast.KindMemWr, lhs.Name,
		ast.NewNamed(ast.KindIdentifier, idAddr),
		ast.NewNamed(ast.KindIdentifier, idData),
		ast.NewNamed(ast.KindIdentifier, idEn))
	//
	p.module.Children = append(p.module.Children, wrnode)
	//
	return repl, nil
}
