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
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// memFlags accumulates the memory demotion classification.  The context
// flags record where in the tree the walk currently is; the candidate flags
// record why a memory must be demoted; the process flags track blocking
// writes within a single process.
type memFlags uint32

const (
	// Context flags, pushed down the walk.
	memCtxAll memFlags = 1 << iota
	memCtxAsync
	memCtxInit
	// Candidate flags, accumulated per memory.
	memForced
	memSetInit
	memSetElse
	memSetAsync
	memCmplxLhs
	memEq2
	// Process flags, accumulated per memory per process.
	memEq1
)

// mem2regState carries the analysis results of the classification pass.
type mem2regState struct {
	// For each memory, why it is a candidate for demotion.
	candidates map[*ast.Node]memFlags
	// For each memory, the offending source locations.
	places map[*ast.Node]map[string]bool
}

// mem2regAsNeeded runs the two-pass memory demotion analysis over a module:
// classify each memory, decide which must be demoted to per-element
// registers, expand the demoted memories into element wires, and rewrite
// every access to them.
func (p *Elaborator) mem2regAsNeeded(module *ast.Node) error {
	if p.config.NoMem2Reg || module.GetBoolAttribute("nomem2reg") {
		return nil
	}
	//
	state := &mem2regState{
		candidates: make(map[*ast.Node]memFlags),
		places:     make(map[*ast.Node]map[string]bool),
	}
	//
	flags := memFlags(0)
	if p.config.Mem2Reg {
		flags = memCtxAll
	}
	//
	p.module = module
	procFlags := make(map[*ast.Node]memFlags)
	state.classify(module, procFlags, flags)
	//
	demoted := make(map[*ast.Node]bool)
	//
	for mem, memflags := range state.candidates {
		if mem.GetBoolAttribute("nomem2reg") {
			continue
		}
		//
		switch {
		case memflags&memForced != 0:
			// Explicitly requested; no warning.
		case memflags&memEq2 != 0,
			memflags&memSetAsync != 0,
			memflags&memSetInit != 0 && memflags&memSetElse != 0,
			memflags&memCmplxLhs != 0:
			if !demoted[mem] {
				log.Warnf("replacing memory %s with list of registers, see %s",
					mem.Name, state.placeList(mem))
			}
		default:
			continue
		}
		//
		demoted[mem] = true
	}
	//
	if len(demoted) == 0 {
		return nil
	}
	// Expand each demoted memory into per-element register wires.
	for _, mem := range module.Children {
		if !demoted[mem] {
			continue
		}
		//
		memWidth, memSize, _ := mem.MemInfo()
		//
		for i := 0; i < memSize; i++ {
			reg := ast.NewNamed(ast.KindWire, fmt.Sprintf("%s[%d]", mem.Name, i),
				ast.NewNode(ast.KindRange,
					ast.ConstInt(int64(memWidth-1), true, -1), ast.ConstInt(0, true, -1)))
			reg.IsReg = true
			reg.IsSigned = mem.IsSigned
			//
			module.Children = append(module.Children, reg)
			//
			if _, err := p.simplifyFully(reg, true, false, false, 1, -1, false, false); err != nil {
				return err
			}
		}
	}
	// Rewrite every access to a demoted memory.
	if err := p.mem2regRewrite(module, demoted, module, nil); err != nil {
		return err
	}
	// Finally drop the demoted memory declarations themselves.
	for i := 0; i < len(module.Children); i++ {
		if demoted[module.Children[i]] {
			module.Children = removeChildAt(module.Children, i)
			i--
		}
	}
	//
	return nil
}

// placeList renders the recorded source locations of a memory, in a stable
// order.
func (p *mem2regState) placeList(mem *ast.Node) string {
	places := make([]string, 0, len(p.places[mem]))
	for place := range p.places[mem] {
		places = append(places, place)
	}
	//
	sort.Strings(places)
	//
	return strings.Join(places, ", ")
}

// record notes a classification flag for a memory, remembering the location
// which first triggered it.
func (p *mem2regState) record(mem *ast.Node, flag memFlags, node *ast.Node) {
	if p.candidates[mem]&flag == 0 {
		if p.places[mem] == nil {
			p.places[mem] = make(map[string]bool)
		}
		//
		p.places[mem][fmt.Sprintf("%s:%d", node.Filename, node.Line)] = true
	}
	//
	p.candidates[mem] |= flag
}

// markComplexLhs flags every memory occurring below a complex left-hand
// side.
func (p *mem2regState) markComplexLhs(n *ast.Node) {
	for _, child := range n.Children {
		p.markComplexLhs(child)
	}
	//
	if n.Kind == ast.KindIdentifier && n.Target != nil && n.Target.Kind == ast.KindMemory {
		p.record(n.Target, memCmplxLhs, n)
	}
}

// classify is the first analysis pass: walk the tree carrying the contextual
// flags and accumulate, per memory, the reasons it would need demotion.
func (p *mem2regState) classify(n *ast.Node, procFlags map[*ast.Node]memFlags, flags memFlags) {
	childrenFlags := memFlags(0)
	ignoreChildren := 0
	//
	if n.Kind == ast.KindAssign || n.Kind == ast.KindAssignEq || n.Kind == ast.KindAssignLe {
		// Memories used within a complex LHS expression cannot become RAM
		// ports.
		for _, lhsChild := range n.Children[0].Children {
			p.markComplexLhs(lhsChild)
		}
		//
		lhs := n.Children[0]
		//
		if lhs.Kind == ast.KindIdentifier && lhs.Target != nil && lhs.Target.Kind == ast.KindMemory {
			mem := lhs.Target
			//
			if flags&memCtxAsync != 0 {
				p.record(mem, memSetAsync, n)
			}
			//
			if n.Kind == ast.KindAssignEq {
				if procFlags[mem]&memEq1 == 0 {
					p.record(mem, 0, n)
				}
				//
				procFlags[mem] |= memEq1
			}
			//
			if flags&memCtxInit != 0 {
				p.record(mem, memSetInit, n)
			} else {
				p.record(mem, memSetElse, n)
			}
		}
		// The left-hand side has been fully accounted for.
		ignoreChildren = 1
	}
	//
	if n.Kind == ast.KindIdentifier && n.Target != nil && n.Target.Kind == ast.KindMemory {
		// A read after a blocking write within the same process.
		if procFlags[n.Target]&memEq1 != 0 && p.candidates[n.Target]&memEq2 == 0 {
			p.record(n.Target, memEq2, n)
		}
	}
	// Demotion is forced by attribute, by global request, or by the memory
	// being declared as a plain wire.
	if n.Kind == ast.KindMemory && (n.GetBoolAttribute("mem2reg") || flags&memCtxAll != 0 || !n.IsReg) {
		p.candidates[n] |= memForced
	}
	//
	if n.Kind == ast.KindModule && n.GetBoolAttribute("mem2reg") {
		childrenFlags |= memCtxAll
	}
	//
	var nestedProcFlags map[*ast.Node]memFlags
	//
	if n.Kind == ast.KindAlways {
		edges := 0
		//
		for _, child := range n.Children {
			if child.Kind == ast.KindPosEdge || child.Kind == ast.KindNegEdge {
				edges++
			}
		}
		//
		if edges != 1 {
			childrenFlags |= memCtxAsync
		}
		//
		nestedProcFlags = make(map[*ast.Node]memFlags)
	}
	//
	if n.Kind == ast.KindInitial {
		childrenFlags |= memCtxInit
		nestedProcFlags = make(map[*ast.Node]memFlags)
	}
	//
	flags |= childrenFlags
	//
	for _, child := range n.Children {
		if ignoreChildren > 0 {
			ignoreChildren--
		} else if nestedProcFlags != nil {
			p.classify(child, nestedProcFlags, flags)
		} else {
			p.classify(child, procFlags, flags)
		}
	}
}

// mem2regRewrite is the second pass: replace every access to a demoted
// memory with either a direct per-element reference (constant index) or a
// case over the index selecting among the element registers.
func (p *Elaborator) mem2regRewrite(n *ast.Node, demoted map[*ast.Node]bool,
	mod *ast.Node, block *ast.Node) error {
	if n.Kind == ast.KindBlock {
		block = n
	}
	//
	if (n.Kind == ast.KindAssignLe || n.Kind == ast.KindAssignEq) && block != nil &&
		n.Children[0].Target != nil && demoted[n.Children[0].Target] &&
		len(n.Children[0].Children) > 0 && len(n.Children[0].Children[0].Children) > 0 &&
		n.Children[0].Children[0].Children[0].Kind != ast.KindConstant {
		if err := p.rewriteDemotedWrite(n, mod, block); err != nil {
			return err
		}
	}
	//
	if n.Kind == ast.KindIdentifier && n.Target != nil && demoted[n.Target] {
		if err := p.rewriteDemotedRead(n, mod, block); err != nil {
			return err
		}
	}
	// Children are snapshot first, since rewrites insert siblings.
	children := make([]*ast.Node, len(n.Children))
	copy(children, n.Children)
	//
	for _, child := range children {
		if err := p.mem2regRewrite(child, demoted, mod, block); err != nil {
			return err
		}
	}
	//
	return nil
}

// rewriteDemotedWrite replaces a write through a non-constant index with
// helper ADDR/DATA registers and a case assigning the selected element.
func (p *Elaborator) rewriteDemotedWrite(n *ast.Node, mod *ast.Node, block *ast.Node) error {
	lhs := n.Children[0]
	mem := lhs.Target
	//
	memWidth, memSize, addrBits := mem.MemInfo()
	//
	prefix := fmt.Sprintf("$mem2reg_wr$%s$%s:%d$%d", lhs.Name, n.Filename, n.Line, p.nextID())
	idAddr, idData := prefix+"_ADDR", prefix+"_DATA"
	//
	if _, err := p.addHelperRegister(mod, idAddr, addrBits, true); err != nil {
		return err
	}
	//
	if _, err := p.addHelperRegister(mod, idData, memWidth, true); err != nil {
		return err
	}
	//
	assignIdx := indexOfChild(block.Children, n)
	if assignIdx < 0 {
		return errorAt(n, InternalInvariant, "lost position in enclosing block")
	}
	//
	assignAddr := ast.NewNode(ast.KindAssignEq,
		ast.NewNamed(ast.KindIdentifier, idAddr),
		lhs.Children[0].Children[0].Clone())
	block.Children = insertChildren(block.Children, assignIdx+1, []*ast.Node{assignAddr})
	//
	caseNode := ast.NewNode(ast.KindCase, ast.NewNamed(ast.KindIdentifier, idAddr))
	//
	for i := 0; i < memSize; i++ {
		assignReg := ast.NewNode(n.Kind,
			ast.NewNamed(ast.KindIdentifier, fmt.Sprintf("%s[%d]", lhs.Name, i)),
			ast.NewNamed(ast.KindIdentifier, idData))
		//
		cond := ast.NewNode(ast.KindCond,
			ast.ConstInt(int64(i), false, addrBits),
			ast.NewNode(ast.KindBlock, assignReg))
		//
		caseNode.Children = append(caseNode.Children, cond)
	}
	//
	block.Children = insertChildren(block.Children, assignIdx+2, []*ast.Node{caseNode})
	// The original statement becomes a plain blocking assignment into the
	// data helper.
	lhs.DeleteChildren()
	lhs.RangeValid = false
	lhs.Target = nil
	lhs.Name = idData
	n.Kind = ast.KindAssignEq
	//
	return nil
}

// rewriteDemotedRead replaces a read of a demoted memory: a constant index
// becomes a direct element reference, whilst a dynamic index becomes helper
// ADDR/DATA registers and a case reading the selected element.
func (p *Elaborator) rewriteDemotedRead(n *ast.Node, mod *ast.Node, block *ast.Node) error {
	if len(n.Children) == 0 || len(n.Children[0].Children) == 0 {
		return errorAt(n, TypeMisuse, "demoted memory %s accessed without an index", n.Name)
	}
	//
	index := n.Children[0].Children[0]
	//
	if index.Kind == ast.KindConstant {
		n.Name = fmt.Sprintf("%s[%d]", n.Name, index.Integer())
		n.DeleteChildren()
		n.RangeValid = false
		n.Target = nil
		//
		return nil
	}
	//
	mem := n.Target
	memWidth, memSize, addrBits := mem.MemInfo()
	//
	prefix := fmt.Sprintf("$mem2reg_rd$%s$%s:%d$%d", n.Name, n.Filename, n.Line, p.nextID())
	idAddr, idData := prefix+"_ADDR", prefix+"_DATA"
	//
	if _, err := p.addHelperRegister(mod, idAddr, addrBits, block != nil); err != nil {
		return err
	}
	//
	if _, err := p.addHelperRegister(mod, idData, memWidth, block != nil); err != nil {
		return err
	}
	//
	assignKind := ast.KindAssign
	if block != nil {
		assignKind = ast.KindAssignEq
	}
	//
	assignAddr := ast.NewNode(assignKind,
		ast.NewNamed(ast.KindIdentifier, idAddr), index.Clone())
	//
	caseNode := ast.NewNode(ast.KindCase, ast.NewNamed(ast.KindIdentifier, idAddr))
	//
	for i := 0; i < memSize; i++ {
		assignReg := ast.NewNode(ast.KindAssignEq,
			ast.NewNamed(ast.KindIdentifier, idData),
			ast.NewNamed(ast.KindIdentifier, fmt.Sprintf("%s[%d]", n.Name, i)))
		//
		cond := ast.NewNode(ast.KindCond,
			ast.ConstInt(int64(i), false, addrBits),
			ast.NewNode(ast.KindBlock, assignReg))
		//
		caseNode.Children = append(caseNode.Children, cond)
	}
	// An out-of-range address reads all-X.
	defaultAssign := ast.NewNode(ast.KindAssignEq,
		ast.NewNamed(ast.KindIdentifier, idData),
		ast.ConstBits(bitvec.NewFilled(memWidth, bitvec.X), false))
	//
	caseNode.Children = append(caseNode.Children,
		ast.NewNode(ast.KindCond, ast.NewNode(ast.KindDefault),
			ast.NewNode(ast.KindBlock, defaultAssign)))
	//
	if block != nil {
		assignIdx := -1
		//
		for i, child := range block.Children {
			if child.Contains(n) {
				assignIdx = i
				break
			}
		}
		//
		if assignIdx < 0 {
			return errorAt(n, InternalInvariant, "lost position in enclosing block")
		}
		//
		block.Children = insertChildren(block.Children, assignIdx, []*ast.Node{assignAddr, caseNode})
	} else {
		proc := ast.NewNode(ast.KindAlways, ast.NewNode(ast.KindBlock, caseNode))
		mod.Children = append(mod.Children, proc)
		mod.Children = append(mod.Children, assignAddr)
	}
	//
	n.DeleteChildren()
	n.RangeValid = false
	n.Target = nil
	n.Name = idData
	//
	return nil
}

// addHelperRegister synthesises one of the helper registers used when
// rewriting accesses to demoted memories.
func (p *Elaborator) addHelperRegister(mod *ast.Node, name string, width int, nosync bool) (*ast.Node, error) {
	wire := ast.NewNamed(ast.KindWire, name,
		ast.NewNode(ast.KindRange, ast.ConstInt(int64(width-1), true, -1), ast.ConstInt(0, true, -1)))
	wire.IsReg = true
	//
	if nosync {
		wire.SetAttribute("nosync", ast.ConstInt(1, false, -1))
	}
	//
	mod.Children = append(mod.Children, wire)
	//
	if _, err := p.simplifyFully(wire, true, false, false, 1, -1, false, false); err != nil {
		return nil, err
	}
	//
	return wire, nil
}
