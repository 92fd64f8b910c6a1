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

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// unrollFor unrolls a for loop or generate-for by constant-evaluating its
// initialiser, repeatedly evaluating its condition, cloning its body with the
// loop variable substituted, and evaluating its step.  Unrolled generate
// bodies are hoisted into the enclosing module; unrolled statements are
// spliced into the enclosing block at the loop's position.
func (p *Elaborator) unrollFor(n *ast.Node, stage int, widthHint int, signHint bool) error {
	initAst, whileAst, nextAst := n.Children[0], n.Children[1], n.Children[2]
	bodyAst := n.Children[3]
	// Collapse a body which is a sole nested anonymous generate block.
	for bodyAst.Kind == ast.KindGenBlock && bodyAst.Name == "" &&
		len(bodyAst.Children) == 1 && bodyAst.Children[0].Kind == ast.KindGenBlock {
		bodyAst = bodyAst.Children[0]
	}
	//
	if initAst.Kind != ast.KindAssignEq {
		return errorAt(n, SyntaxInElaboration, "unsupported 1st expression of for loop")
	}
	//
	if nextAst.Kind != ast.KindAssignEq {
		return errorAt(n, SyntaxInElaboration, "unsupported 3rd expression of for loop")
	}
	//
	if n.Kind == ast.KindGenFor {
		if initAst.Children[0].Target == nil || initAst.Children[0].Target.Kind != ast.KindGenVar {
			return errorAt(n, NameResolution, "left-hand side of 1st expression of generate for-loop is not a gen var")
		}
		//
		if nextAst.Children[0].Target == nil || nextAst.Children[0].Target.Kind != ast.KindGenVar {
			return errorAt(n, NameResolution, "left-hand side of 3rd expression of generate for-loop is not a gen var")
		}
	} else {
		if initAst.Children[0].Target == nil || initAst.Children[0].Target.Kind != ast.KindWire {
			return errorAt(n, NameResolution, "left-hand side of 1st expression of for loop is not a register")
		}
		//
		if nextAst.Children[0].Target == nil || nextAst.Children[0].Target.Kind != ast.KindWire {
			return errorAt(n, NameResolution, "left-hand side of 3rd expression of for loop is not a register")
		}
	}
	//
	if initAst.Children[0].Target != nextAst.Children[0].Target {
		return errorAt(n, NameResolution, "incompatible left-hand sides in 1st and 3rd expression of for loop")
	}
	// Evaluate the initialiser.
	varbuf := initAst.Children[1].Clone()
	//
	if _, err := p.simplifyFully(varbuf, true, false, false, stage, widthHint, signHint, false); err != nil {
		return err
	}
	//
	if varbuf.Kind != ast.KindConstant {
		return errorAt(n, SyntaxInElaboration, "right-hand side of 1st expression of for loop is not constant")
	}
	// Bind the loop variable as a local parameter holding the current value.
	loopVar := ast.NewNamed(ast.KindLocalParam, initAst.Children[0].Name, varbuf)
	backup := scopeBackup{}
	p.bind(backup, loopVar)
	//
	defer p.restoreScope(backup)
	//
	blockIdx := 0
	//
	if n.Kind == ast.KindFor {
		if p.block == nil {
			return errorAt(n, TypeMisuse, "for loop outside of a block")
		}
		//
		blockIdx = indexOfChild(p.block.Children, p.blockChild)
		if blockIdx < 0 {
			return errorAt(n, InternalInvariant, "lost position in enclosing block")
		}
	}
	//
	for {
		// Evaluate the condition.
		buf := whileAst.Clone()
		if _, err := p.simplifyFully(buf, true, false, false, stage, widthHint, signHint, false); err != nil {
			return err
		}
		//
		if buf.Kind != ast.KindConstant {
			return errorAt(n, SyntaxInElaboration, "2nd expression of for loop is not constant")
		}
		//
		if !buf.AsBool() {
			break
		}
		// Expand the body.
		index := loopVar.Children[0].Integer()
		//
		var blockBuf *ast.Node
		if bodyAst.Kind == ast.KindGenBlock {
			blockBuf = bodyAst.Clone()
		} else {
			blockBuf = ast.NewNode(ast.KindGenBlock, bodyAst.Clone())
		}
		//
		if blockBuf.Name == "" {
			blockBuf.Name = fmt.Sprintf("$genblock$%s:%d$%d", n.Filename, n.Line, p.nextID())
		}
		//
		nameMap := make(map[string]string)
		prefix := fmt.Sprintf("%s[%d].", blockBuf.Name, index)
		p.expandGenblock(blockBuf, loopVar.Name, prefix, nameMap)
		//
		if n.Kind == ast.KindGenFor {
			for _, child := range blockBuf.Children {
				if _, err := p.simplify(child, false, false, false, stage, -1, false, false); err != nil {
					return err
				}
				//
				p.module.Children = append(p.module.Children, child)
			}
		} else {
			p.block.Children = insertChildren(p.block.Children, blockIdx, blockBuf.Children)
			blockIdx += len(blockBuf.Children)
		}
		// Evaluate the step.
		buf = nextAst.Children[1].Clone()
		if _, err := p.simplifyFully(buf, true, false, false, stage, widthHint, signHint, false); err != nil {
			return err
		}
		//
		if buf.Kind != ast.KindConstant {
			return errorAt(n, SyntaxInElaboration, "right-hand side of 3rd expression of for loop is not constant")
		}
		//
		loopVar.Children[0] = buf
	}
	//
	return nil
}

// expandNamedBlock prefixes the declarations of a named block with the block
// name, hoists the declared wires to the module, and strips the block of its
// name.
func (p *Elaborator) expandNamedBlock(n *ast.Node, stage int) error {
	nameMap := make(map[string]string)
	p.expandGenblock(n, "", n.Name+".", nameMap)
	//
	var kept []*ast.Node
	//
	for _, child := range n.Children {
		if child.Kind == ast.KindWire {
			if _, err := p.simplify(child, false, false, false, stage, -1, false, false); err != nil {
				return err
			}
			//
			p.module.Children = append(p.module.Children, child)
		} else {
			kept = append(kept, child)
		}
	}
	//
	n.Children = kept
	n.Name = ""
	//
	return nil
}

// spliceGenBlock hoists the children of an unconditional generate block into
// the enclosing module, applying name expansion when the block is named.
func (p *Elaborator) spliceGenBlock(n *ast.Node, stage int) error {
	if n.Name != "" {
		nameMap := make(map[string]string)
		p.expandGenblock(n, "", n.Name+".", nameMap)
	}
	//
	for _, child := range n.Children {
		if _, err := p.simplify(child, false, false, false, stage, -1, false, false); err != nil {
			return err
		}
		//
		p.module.Children = append(p.module.Children, child)
	}
	//
	n.Children = nil
	//
	return nil
}

// evalGenIf evaluates a generate-if condition and splices the selected arm
// into the enclosing module.
func (p *Elaborator) evalGenIf(n *ast.Node, stage int, widthHint int, signHint bool) error {
	buf := n.Children[0].Clone()
	//
	if _, err := p.simplifyFully(buf, true, false, false, stage, widthHint, signHint, false); err != nil {
		return err
	}
	//
	if buf.Kind != ast.KindConstant {
		return errorAt(n, SyntaxInElaboration, "condition for generate if is not constant")
	}
	//
	var chosen *ast.Node
	//
	if buf.AsBool() {
		chosen = n.Children[1].Clone()
	} else if len(n.Children) > 2 {
		chosen = n.Children[2].Clone()
	}
	//
	if chosen != nil {
		if chosen.Kind != ast.KindGenBlock {
			chosen = ast.NewNode(ast.KindGenBlock, chosen)
		}
		//
		if err := p.spliceSelectedGenBlock(chosen, stage); err != nil {
			return err
		}
	}
	//
	return nil
}

// evalGenCase evaluates a generate-case scrutinee, picks the first matching
// arm (or the default), and splices its generate block into the module.
// Matching uses four-valued equality at the operands' mutual signedness.
func (p *Elaborator) evalGenCase(n *ast.Node, stage int, widthHint int, signHint bool) error {
	buf := n.Children[0].Clone()
	//
	if _, err := p.simplifyFully(buf, true, false, false, stage, widthHint, signHint, false); err != nil {
		return err
	}
	//
	if buf.Kind != ast.KindConstant {
		return errorAt(n, SyntaxInElaboration, "condition for generate case is not constant")
	}
	//
	refSigned := buf.IsSigned
	refValue := buf.Value
	//
	var selected *ast.Node
	//
outer:
	for i := 1; i < len(n.Children); i++ {
		cond := n.Children[i]
		if cond.Kind != ast.KindCond {
			return errorAt(cond, InternalInvariant, "malformed generate case arm")
		}
		//
		var genblock *ast.Node
		//
		for _, child := range cond.Children {
			if child.Kind == ast.KindGenBlock {
				if genblock != nil {
					return errorAt(cond, InternalInvariant, "generate case arm with two bodies")
				}
				//
				genblock = child
			}
		}
		//
		for _, child := range cond.Children {
			if child.Kind == ast.KindDefault {
				if selected == nil {
					selected = genblock
				}
				//
				continue
			} else if child.Kind == ast.KindGenBlock {
				continue
			}
			//
			value := child.Clone()
			if _, err := p.simplifyFully(value, true, false, false, stage, widthHint, signHint, false); err != nil {
				return err
			}
			//
			if value.Kind != ast.KindConstant {
				return errorAt(child, SyntaxInElaboration, "expression in generate case is not constant")
			}
			//
			signed := refSigned && value.IsSigned
			//
			if bitvec.Eq(refValue, value.Value, signed, signed, 1).AsBool() {
				selected = genblock
				break outer
			}
		}
	}
	//
	if selected != nil {
		return p.spliceSelectedGenBlock(selected.Clone(), stage)
	}
	//
	return nil
}

// spliceSelectedGenBlock expands (when named) and hoists the children of a
// chosen generate block into the module.
func (p *Elaborator) spliceSelectedGenBlock(block *ast.Node, stage int) error {
	if block.Name != "" {
		nameMap := make(map[string]string)
		p.expandGenblock(block, "", block.Name+".", nameMap)
	}
	//
	for _, child := range block.Children {
		if _, err := p.simplify(child, false, false, false, stage, -1, false, false); err != nil {
			return err
		}
		//
		p.module.Children = append(p.module.Children, child)
	}
	//
	return nil
}

// unrollCellArray clones a cell N times over its constant range, suffixing
// each instance name with its index and prefixing the cell type with an
// array marker for downstream consumption.
func (p *Elaborator) unrollCellArray(n *ast.Node) (*ast.Node, error) {
	if !n.Children[0].RangeValid {
		return nil, errorAt(n, SyntaxInElaboration, "non-constant array range on cell array")
	}
	//
	left, right := n.Children[0].RangeLeft, n.Children[0].RangeRight
	num := max(left, right) - minInt(left, right) + 1
	//
	repl := ast.NewNode(ast.KindGenBlock)
	//
	for i := 0; i < num; i++ {
		idx := right + i
		if left <= right {
			idx = right - i
		}
		//
		cell := n.Children[1].Clone()
		cell.Name = fmt.Sprintf("%s[%d]", cell.Name, idx)
		//
		if cell.Kind == ast.KindPrimitive {
			return nil, errorAt(n, TypeMisuse, "cell arrays of primitives are not supported")
		}
		//
		if len(cell.Children) == 0 || cell.Children[0].Kind != ast.KindCellType {
			return nil, errorAt(cell, InternalInvariant, "cell without cell type")
		}
		//
		cell.Children[0].Name = fmt.Sprintf("$array:%d:%d:%s", i, num, cell.Children[0].Name)
		repl.Children = append(repl.Children, cell)
	}
	//
	return repl, nil
}

// rewritePrimitive replaces a gate primitive instantiation with an
// equivalent continuous assignment.  N-ary gates fold from the left.
func (p *Elaborator) rewritePrimitive(n *ast.Node) error {
	if len(n.Children) < 2 {
		return errorAt(n, ArgumentArity, "insufficient number of arguments for primitive `%s`", n.Name)
	}
	//
	args := make([]*ast.Node, 0, len(n.Children))
	//
	for _, child := range n.Children {
		if child.Kind != ast.KindArgument || len(child.Children) != 1 {
			return errorAt(child, InternalInvariant, "malformed primitive argument")
		}
		//
		args = append(args, child.Children[0])
	}
	//
	var expr *ast.Node
	//
	switch n.Name {
	case "bufif0", "bufif1", "notif0", "notif1":
		if len(args) != 3 {
			return errorAt(n, ArgumentArity, "invalid number of arguments for primitive `%s`", n.Name)
		}
		//
		zconst := ast.ConstBits(bitvec.NewFilled(1, bitvec.Z), false)
		//
		muxInput := args[1]
		if n.Name == "notif0" || n.Name == "notif1" {
			muxInput = ast.NewNode(ast.KindBitNot, muxInput)
		}
		//
		expr = ast.NewNode(ast.KindTernary, args[2])
		//
		if n.Name == "bufif0" {
			expr.Children = append(expr.Children, zconst, muxInput)
		} else {
			expr.Children = append(expr.Children, muxInput, zconst)
		}
	default:
		opType, invert, ok := primitiveOp(n.Name)
		if !ok {
			return errorAt(n, InternalInvariant, "unknown primitive `%s`", n.Name)
		}
		//
		expr = args[1]
		//
		if opType != ast.KindPos {
			for i := 2; i < len(args); i++ {
				expr = ast.NewNode(opType, expr, args[i])
			}
		}
		//
		if invert {
			expr = ast.NewNode(ast.KindBitNot, expr)
		}
	}
	//
	n.Name = ""
	n.Kind = ast.KindAssign
	n.Children = []*ast.Node{args[0], expr}
	//
	return nil
}

// primitiveOp maps a gate primitive name to the operator it folds with, and
// whether the folded result is inverted.
func primitiveOp(name string) (ast.Kind, bool, bool) {
	switch name {
	case "and":
		return ast.KindBitAnd, false, true
	case "nand":
		return ast.KindBitAnd, true, true
	case "or":
		return ast.KindBitOr, false, true
	case "nor":
		return ast.KindBitOr, true, true
	case "xor":
		return ast.KindBitXor, false, true
	case "xnor":
		return ast.KindBitXor, true, true
	case "buf":
		return ast.KindPos, false, true
	case "not":
		return ast.KindPos, true, true
	default:
		return ast.KindNone, false, false
	}
}

// expandDynamicLValue replaces an assignment through a non-constant range
// (e.g. "foo[bar] <= 1") with a case over the possible start bits, each arm
// performing a constant-range assignment.  Returns nil when the assignment
// has no dynamic range.
func (p *Elaborator) expandDynamicLValue(n *ast.Node, stage int) (*ast.Node, error) {
	lhs := n.Children[0]
	//
	if lhs.Kind != ast.KindIdentifier || len(lhs.Children) == 0 {
		return nil, nil
	}
	//
	r := lhs.Children[0]
	if r.Kind != ast.KindRange || r.RangeValid {
		return nil, nil
	}
	//
	if lhs.Target == nil || lhs.Target.Kind != ast.KindWire || !lhs.Target.RangeValid {
		return nil, nil
	}
	//
	sourceWidth := lhs.Target.RangeLeft - lhs.Target.RangeRight + 1
	resultWidth := 1
	//
	var shiftExpr *ast.Node
	//
	if len(r.Children) == 1 {
		shiftExpr = r.Children[0].Clone()
	} else {
		shiftExpr = r.Children[1].Clone()
		// The width of a dynamic part select is its static worst case,
		// obtained by evaluating both endpoints with wires at zero.
		leftAtZero := r.Children[0].Clone()
		rightAtZero := r.Children[1].Clone()
		//
		if _, err := p.simplifyFully(leftAtZero, true, true, false, stage, -1, false, false); err != nil {
			return nil, err
		}
		//
		if _, err := p.simplifyFully(rightAtZero, true, true, false, stage, -1, false, false); err != nil {
			return nil, err
		}
		//
		if leftAtZero.Kind != ast.KindConstant || rightAtZero.Kind != ast.KindConstant {
			return nil, errorAt(n, SyntaxInElaboration,
				"unsupported expression on dynamic range select on signal `%s`", lhs.Name)
		}
		//
		resultWidth = leftAtZero.Integer() - rightAtZero.Integer() + 1
	}
	//
	repl := ast.NewNode(ast.KindCase, shiftExpr)
	//
	for i := 0; i <= sourceWidth-resultWidth; i++ {
		startBit := lhs.Target.RangeRight + i
		//
		lvalue := lhs.Clone()
		lvalue.DeleteChildren()
		lvalue.Children = []*ast.Node{ast.NewNode(ast.KindRange,
			ast.ConstInt(int64(startBit+resultWidth-1), true, -1),
			ast.ConstInt(int64(startBit), true, -1))}
		//
		cond := ast.NewNode(ast.KindCond, ast.ConstInt(int64(startBit), true, -1),
			ast.NewNode(ast.KindBlock, ast.NewNode(n.Kind, lvalue, n.Children[1].Clone())))
		//
		repl.Children = append(repl.Children, cond)
	}
	//
	return repl, nil
}

// minInt returns the smaller of two machine integers.
func minInt(a int, b int) int {
	if a <= b {
		return a
	}
	//
	return b
}
