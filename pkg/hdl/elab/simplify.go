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
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// simplify performs one rewriting visit of a node, returning whether
// anything changed.  Callers wanting full simplification re-invoke until it
// returns false.  The parameters mirror the contexts threaded through the
// recursion: constFold permits constant evaluation, atZero makes wire
// identifiers evaluate to zero (used for static worst-case widths), inLValue
// records being under an assignment's left-hand side, stage selects the
// rewrite stage, widthHint/signHint carry the context-determined width, and
// inParam demands a constant-evaluable result.
//
//nolint:gocyclo
func (p *Elaborator) simplify(n *ast.Node, constFold bool, atZero bool, inLValue bool,
	stage int, widthHint int, signHint bool, inParam bool) (bool, error) {
	var newNode *ast.Node
	//
	didSomething := false
	// Function and task bodies are opaque until instantiated.
	if n.Kind == ast.KindFunction || n.Kind == ast.KindTask {
		return false, nil
	}
	// Strip calls to non-synthesisable system tasks.
	if n.Kind == ast.KindTCall && isNonSynthTask(n.Name) {
		n.ReplaceWith(ast.NewNode(ast.KindBlock))
		return true, nil
	}
	// Certain contexts must be evaluated statically.
	switch n.Kind {
	case ast.KindWire, ast.KindParameter, ast.KindLocalParam, ast.KindDefParam,
		ast.KindParaSet, ast.KindRange, ast.KindPrefix:
		constFold = true
	case ast.KindIdentifier:
		if decl := p.lookup(n.Name); decl != nil &&
			(decl.Kind == ast.KindParameter || decl.Kind == ast.KindLocalParam) {
			constFold = true
		}
	}
	//
	switch n.Kind {
	case ast.KindParameter, ast.KindLocalParam, ast.KindDefParam, ast.KindParaSet, ast.KindPrefix:
		inParam = true
	}
	//
	backupScope := scopeBackup{}
	// Entering a module resets the scope and merges duplicate wire
	// declarations.
	if n.Kind == ast.KindModule {
		ds, err := p.enterModule(n, backupScope, stage)
		if err != nil {
			return false, err
		}
		//
		didSomething = didSomething || ds
	}
	//
	// Prune statements which rewrites have dissolved to nothing.
	if n.Kind == ast.KindBlock {
		for i := 0; i < len(n.Children); i++ {
			if isDissolved(n.Children[i]) {
				n.Children = removeChildAt(n.Children, i)
				i--
				didSomething = true
			}
		}
	}
	//
	backupBlock := p.block
	backupBlockChild := p.blockChild
	backupTopBlock := p.topBlock
	backupWidthHint := widthHint
	backupSignHint := signHint
	//
	detectWidthSimple := false
	self0, self1, self2, selfAll := false, false, false, false
	resetWidthAfterChildren := false
	//
	switch n.Kind {
	case ast.KindAssign, ast.KindAssignEq, ast.KindAssignLe:
		if ds, err := p.simplifyUntilPrep(n.Children[0], false, false, true, stage, -1, false, inParam); err != nil {
			return false, err
		} else if ds {
			didSomething = true
		}
		//
		if ds, err := p.simplifyUntilPrep(n.Children[1], false, false, false, stage, -1, false, inParam); err != nil {
			return false, err
		} else if ds {
			didSomething = true
		}
		//
		lhsWidth, _, _, err := p.detectSignWidth(n.Children[0])
		if err != nil {
			return false, err
		}
		//
		rhsWidth, rhsSign, _, err := p.detectSignWidth(n.Children[1])
		if err != nil {
			return false, err
		}
		//
		widthHint = max(lhsWidth, rhsWidth)
		signHint = rhsSign
		self0 = true

	case ast.KindParameter, ast.KindLocalParam:
		if ds, err := p.simplifyUntilPrep(n.Children[0], false, false, false, stage, -1, false, true); err != nil {
			return false, err
		} else if ds {
			didSomething = true
		}
		//
		w, s, _, err := p.detectSignWidth(n.Children[0])
		if err != nil {
			return false, err
		}
		//
		widthHint, signHint = w, s
		//
		if len(n.Children) > 1 && n.Children[1].Kind == ast.KindRange {
			if ds, err := p.simplifyUntilPrep(n.Children[1], false, false, false, stage, -1, false, true); err != nil {
				return false, err
			} else if ds {
				didSomething = true
			}
			//
			if !n.Children[1].RangeValid {
				return false, errorAt(n, SyntaxInElaboration, "non-constant width range on parameter declaration")
			}
			//
			widthHint = max(widthHint, n.Children[1].RangeLeft-n.Children[1].RangeRight+1)
		}

	case ast.KindToBits, ast.KindToSigned, ast.KindToUnsigned, ast.KindConcat, ast.KindReplicate,
		ast.KindReduceAnd, ast.KindReduceOr, ast.KindReduceXor, ast.KindReduceXnor, ast.KindReduceBool:
		detectWidthSimple = true
		selfAll = true

	case ast.KindNeg, ast.KindBitNot, ast.KindPos, ast.KindBitAnd, ast.KindBitOr, ast.KindBitXor,
		ast.KindBitXnor, ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv, ast.KindMod:
		detectWidthSimple = true

	case ast.KindShiftLeft, ast.KindShiftRight, ast.KindShiftSLeft, ast.KindShiftSRight, ast.KindPow:
		detectWidthSimple = true
		self1 = true

	case ast.KindLt, ast.KindLe, ast.KindEq, ast.KindNe, ast.KindEqx, ast.KindNex, ast.KindGe, ast.KindGt:
		// Comparison operands are evaluated together at their shared width
		// and mutual signedness.
		widthHint, signHint = -1, true
		dummyReal := false
		//
		for _, child := range n.Children {
			if ds, err := p.simplifyUntilPrep(child, false, false, inLValue, stage, -1, false, inParam); err != nil {
				return false, err
			} else if ds {
				didSomething = true
			}
			//
			if err := p.signWidthWorker(child, &widthHint, &signHint, &dummyReal); err != nil {
				return false, err
			}
		}
		//
		resetWidthAfterChildren = true

	case ast.KindLogicAnd, ast.KindLogicOr, ast.KindLogicNot:
		detectWidthSimple = true
		selfAll = true

	case ast.KindTernary:
		detectWidthSimple = true
		self0 = true

	case ast.KindMemRd:
		detectWidthSimple = true
		selfAll = true

	default:
		widthHint, signHint = -1, false
	}
	//
	if detectWidthSimple && widthHint < 0 {
		if n.Kind == ast.KindReplicate {
			if ds, err := p.simplifyFully(n.Children[0], true, false, inLValue, stage, -1, false, true); err != nil {
				return false, err
			} else if ds {
				didSomething = true
			}
		}
		//
		for _, child := range n.Children {
			if ds, err := p.simplifyUntilPrep(child, false, false, inLValue, stage, -1, false, inParam); err != nil {
				return false, err
			} else if ds {
				didSomething = true
			}
		}
		//
		w, s, _, err := p.detectSignWidth(n)
		if err != nil {
			return false, err
		}
		//
		widthHint, signHint = w, s
	}
	// Ternaries over real arms have self-determined arms.
	if n.Kind == ast.KindTernary {
		_, _, realThen, err := p.detectSignWidth(n.Children[1])
		if err != nil {
			return false, err
		}
		//
		_, _, realElse, err := p.detectSignWidth(n.Children[2])
		if err != nil {
			return false, err
		}
		//
		if realThen || realElse {
			self1, self2 = true, true
		}
	}
	// Simplify all children, honouring the per-kind traversal restrictions.
	// Iteration is by index since rewrites can add or remove siblings.
	for i := 0; i < len(n.Children); i++ {
		if (n.Kind == ast.KindGenFor || n.Kind == ast.KindFor) && i >= 3 {
			break
		}
		//
		if (n.Kind == ast.KindGenIf || n.Kind == ast.KindGenCase) && i >= 1 {
			break
		}
		//
		if n.Kind == ast.KindGenBlock {
			break
		}
		// Named blocks are expanded before recursion.
		if n.Kind == ast.KindBlock && n.Name != "" {
			break
		}
		//
		if n.Kind == ast.KindPrefix && i >= 1 {
			break
		}
		//
		didSomethingHere := true
		//
		for didSomethingHere && i < len(n.Children) {
			constFoldHere, inLValueHere := constFold, inLValue
			widthHintHere, signHintHere := widthHint, signHint
			inParamHere := inParam
			//
			if i == 0 && (n.Kind == ast.KindReplicate || n.Kind == ast.KindWire) {
				constFoldHere, inParamHere = true, true
			}
			//
			if n.Kind == ast.KindParameter || n.Kind == ast.KindLocalParam {
				constFoldHere = true
			}
			//
			if i == 0 && (n.Kind == ast.KindAssign || n.Kind == ast.KindAssignEq || n.Kind == ast.KindAssignLe) {
				inLValueHere = true
			}
			//
			if n.Kind == ast.KindBlock {
				p.block = n
				p.blockChild = n.Children[i]
			}
			//
			if (n.Kind == ast.KindAlways || n.Kind == ast.KindInitial) && n.Children[i].Kind == ast.KindBlock {
				p.topBlock = n.Children[i]
			}
			//
			if (i == 0 && self0) || (i == 1 && self1) || (i == 2 && self2) || selfAll {
				widthHintHere, signHintHere = -1, false
			}
			//
			ds, err := p.simplify(n.Children[i], constFoldHere, atZero, inLValueHere, stage,
				widthHintHere, signHintHere, inParamHere)
			if err != nil {
				return false, err
			}
			//
			didSomethingHere = ds
			//
			if ds {
				didSomething = true
			}
		}
		// Initial blocks below module level are hoisted at stage two.
		if stage == 2 && i < len(n.Children) && n.Children[i].Kind == ast.KindInitial && p.module != n {
			p.module.Children = append(p.module.Children, n.Children[i])
			n.Children = removeChildAt(n.Children, i)
			i--
			//
			didSomething = true
		}
	}
	// Attribute values are always evaluated statically.
	for _, attr := range n.Attributes {
		if ds, err := p.simplifyFully(attr, true, false, false, stage, -1, false, true); err != nil {
			return false, err
		} else if ds {
			didSomething = true
		}
	}
	//
	if resetWidthAfterChildren {
		widthHint, signHint = backupWidthHint, backupSignHint
		//
		if widthHint < 0 {
			w, s, _, err := p.detectSignWidth(n)
			if err != nil {
				return false, err
			}
			//
			widthHint, signHint = w, s
		}
	}
	//
	p.block = backupBlock
	p.blockChild = backupBlockChild
	p.topBlock = backupTopBlock
	//
	p.restoreScope(backupScope)
	//
	if n.Kind == ast.KindModule {
		p.scope = make(map[string]*ast.Node)
	}
	// =================================================================
	// Rewrite rules
	// =================================================================
	//
	// Convert defparam nodes into cell parameters.
	if n.Kind == ast.KindDefParam && n.Name != "" {
		if err := p.rewriteDefParam(n); err != nil {
			return false, err
		}
		//
		didSomething = true
	}
	// Resolve constant prefixes into plain identifiers.
	if newNode == nil && n.Kind == ast.KindPrefix {
		repl, err := p.rewritePrefix(n)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	// Evaluate explicit bit conversions.
	if newNode == nil && n.Kind == ast.KindToBits {
		if n.Children[0].Kind != ast.KindConstant {
			return false, errorAt(n, SyntaxInElaboration, "width of bit conversion is not constant")
		}
		//
		if n.Children[1].Kind != ast.KindConstant {
			return false, errorAt(n, SyntaxInElaboration, "operand of bit conversion is not constant")
		}
		//
		value := n.Children[1].BitsAt(n.Children[0].Integer(), n.Children[1].IsSigned)
		newNode = ast.ConstBits(value, n.Children[1].IsSigned)
	}
	// Annotate constant ranges.
	if n.Kind == ast.KindRange {
		didSomething = annotateRange(n) || didSomething
	}
	// Annotate wires with their ranges.
	if n.Kind == ast.KindWire {
		didSomething = annotateWire(n) || didSomething
	}
	// Trim or extend parameter values to their declared width.
	if n.Kind == ast.KindParameter || n.Kind == ast.KindLocalParam {
		ds, err := p.enforceParameterWidth(n, signHint)
		if err != nil {
			return false, err
		}
		//
		didSomething = didSomething || ds
	}
	// Resolve identifiers, creating auto-wires as needed.
	if n.Kind == ast.KindIdentifier {
		didSomething = p.resolveIdentifier(n) || didSomething
	}
	// Split a bit select on a memory read into separate statements.
	if newNode == nil && n.Kind == ast.KindIdentifier && len(n.Children) == 2 &&
		n.Children[0].Kind == ast.KindRange && n.Children[1].Kind == ast.KindRange {
		repl, err := p.rewriteMemoryBitSelect(n, inLValue)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	//
	if n.Kind == ast.KindWhile {
		return false, errorAt(n, TypeMisuse, "while loops are only allowed in constant functions")
	}
	//
	if n.Kind == ast.KindRepeat {
		return false, errorAt(n, TypeMisuse, "repeat loops are only allowed in constant functions")
	}
	// Unroll for loops and generate-for blocks.
	if (n.Kind == ast.KindGenFor || n.Kind == ast.KindFor) && len(n.Children) != 0 {
		if len(n.Children) != 4 {
			return false, errorAt(n, InternalInvariant, "malformed for loop")
		}
		//
		if err := p.unrollFor(n, stage, widthHint, signHint); err != nil {
			return false, err
		}
		//
		n.ReplaceWith(ast.NewNode(ast.KindBlock))
		didSomething = true
	}
	// Expand a named block, hoisting its wires to the module.
	if n.Kind == ast.KindBlock && n.Name != "" {
		if err := p.expandNamedBlock(n, stage); err != nil {
			return false, err
		}
		//
		didSomething = true
	}
	// Splice an unconditional generate block into the module.
	if n.Kind == ast.KindGenBlock && len(n.Children) != 0 {
		if err := p.spliceGenBlock(n, stage); err != nil {
			return false, err
		}
		//
		n.ReplaceWith(ast.NewNode(ast.KindBlock))
		didSomething = true
	}
	// Evaluate a generate-if.
	if n.Kind == ast.KindGenIf && len(n.Children) != 0 {
		if err := p.evalGenIf(n, stage, widthHint, signHint); err != nil {
			return false, err
		}
		//
		n.ReplaceWith(ast.NewNode(ast.KindBlock))
		didSomething = true
	}
	// Evaluate a generate-case.
	if n.Kind == ast.KindGenCase && len(n.Children) != 0 {
		if err := p.evalGenCase(n, stage, widthHint, signHint); err != nil {
			return false, err
		}
		//
		n.ReplaceWith(ast.NewNode(ast.KindBlock))
		didSomething = true
	}
	// Unroll cell arrays.
	if newNode == nil && n.Kind == ast.KindCellArray {
		repl, err := p.unrollCellArray(n)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	// Replace gate primitives with equivalent assignments.
	if n.Kind == ast.KindPrimitive {
		if err := p.rewritePrimitive(n); err != nil {
			return false, err
		}
		//
		didSomething = true
	}
	// Expand a dynamic range on the left-hand side of an assignment into a
	// case over the possible start bits.
	if newNode == nil && !didSomething && (n.Kind == ast.KindAssignEq || n.Kind == ast.KindAssignLe) {
		repl, err := p.expandDynamicLValue(n, stage)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	// Lower assertions at stage two.
	if newNode == nil && stage > 1 && n.Kind == ast.KindAssert && p.block != nil {
		repl, err := p.lowerAssert(n)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	//
	if newNode == nil && stage > 1 && n.Kind == ast.KindAssert && len(n.Children) == 1 {
		n.Children[0] = ast.NewNode(ast.KindReduceBool, n.Children[0].Clone())
		n.Children = append(n.Children, ast.ConstInt(1, false, 1))
		didSomething = true
	}
	// A right-hand side memory access becomes a read port.
	if newNode == nil && stage > 1 && n.Kind == ast.KindIdentifier && !inLValue &&
		n.Target != nil && n.Target.Kind == ast.KindMemory &&
		len(n.Children) == 1 && n.Children[0].Kind == ast.KindRange && len(n.Children[0].Children) == 1 {
		repl := ast.NewNode(ast.KindMemRd, n.Children[0].Children[0].Clone())
		repl.Name = n.Name
		repl.Target = n.Target
		newNode = repl
	}
	// An assignment to a memory becomes a write port.
	if newNode == nil && stage > 1 && (n.Kind == ast.KindAssignEq || n.Kind == ast.KindAssignLe) &&
		isMemoryWrite(n) {
		repl, err := p.rewriteMemoryWrite(n)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	// Replace function and task calls with the called body.
	if newNode == nil && (n.Kind == ast.KindFCall || n.Kind == ast.KindTCall) && n.Name != "" {
		repl, ds, err := p.expandCall(n, stage, widthHint, signHint, inParam)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
		didSomething = didSomething || ds
	}
	// Perform constant folding when activated.
	if constFold && newNode == nil {
		repl, err := p.constFoldNode(n, atZero, widthHint, signHint)
		if err != nil {
			return false, err
		}
		//
		newNode = repl
	}
	// Apply any replacement produced above.  The swap preserves the node's
	// identity and source location, and clears its fixed-point marker.
	if newNode != nil {
		n.ReplaceWith(newNode)
		didSomething = true
	}
	//
	if !didSomething {
		n.BasicPrep = true
	}
	//
	return didSomething, nil
}

// isNonSynthTask recognises the simulation-only system tasks which are
// stripped during elaboration.
func isNonSynthTask(name string) bool {
	return name == "$display" || name == "$stop" || name == "$finish"
}

// enterModule clears and repopulates the scope from a module's declarations,
// merging multiply-declared wires and pruning the husks left by dissolved
// generate constructs.  The module's parameters and wires are pre-simplified
// so that later declarations can refer to earlier ones.
func (p *Elaborator) enterModule(n *ast.Node, backup scopeBackup, stage int) (bool, error) {
	p.scope = make(map[string]*ast.Node)
	p.module = n
	//
	didSomething := false
	wires := make(map[string]*ast.Node)
	//
	for i := 0; i < len(n.Children); i++ {
		node := n.Children[i]
		// Prune statements which rewrites have dissolved to nothing.
		if isDissolved(node) {
			n.Children = removeChildAt(n.Children, i)
			i--
			didSomething = true
			//
			continue
		}
		//
		if node.Kind == ast.KindWire {
			if first, ok := wires[node.Name]; ok {
				if !wiresCompatible(first, node) {
					if stage > 1 {
						return false, errorAt(node, TypeMisuse,
							"incompatible re-declaration of wire %s", node.Name)
					}
					//
					continue
				}
				//
				mergeWires(first, node)
				n.Children = removeChildAt(n.Children, i)
				i--
				didSomething = true
				//
				continue
			}
			//
			wires[node.Name] = node
		}
		//
		if node.Kind.IsDeclaration() {
			p.bind(backup, node)
		}
	}
	// Pre-simplify declarations so that e.g. wire ranges over parameters
	// resolve before the wires are used.
	for _, node := range n.Children {
		switch node.Kind {
		case ast.KindParameter, ast.KindLocalParam, ast.KindWire, ast.KindAutoWire:
			isParam := node.Kind == ast.KindParameter || node.Kind == ast.KindLocalParam
			//
			ds, err := p.simplifyFully(node, true, false, false, 1, -1, false, isParam)
			if err != nil {
				return false, err
			}
			//
			didSomething = didSomething || ds
		}
	}
	//
	return didSomething, nil
}

// isDissolved recognises the empty husks left behind when a construct has
// been fully expanded in place.
func isDissolved(node *ast.Node) bool {
	switch node.Kind {
	case ast.KindBlock:
		return node.Name == "" && len(node.Children) == 0
	case ast.KindDefParam, ast.KindTCall:
		return node.Name == ""
	default:
		return false
	}
}

// wiresCompatible decides whether a re-declaration of a wire can be merged
// into the first declaration.
func wiresCompatible(first *ast.Node, node *ast.Node) bool {
	// A bare register re-declaration (e.g. "output foo; reg foo;") is always
	// compatible.
	if !node.IsInput && !node.IsOutput && node.IsReg && len(node.Children) == 0 {
		return true
	}
	//
	if len(first.Children) != len(node.Children) {
		return false
	}
	//
	for j := 0; j < len(node.Children); j++ {
		n1, n2 := first.Children[j], node.Children[j]
		if n1.Kind == ast.KindRange && n2.Kind == ast.KindRange && n1.RangeValid && n2.RangeValid {
			if n1.RangeLeft != n2.RangeLeft || n1.RangeRight != n2.RangeRight {
				return false
			}
		} else if !n1.Equal(n2) {
			return false
		}
	}
	//
	if first.RangeLeft != node.RangeLeft || first.RangeRight != node.RangeRight {
		return false
	}
	//
	if first.PortID == 0 && (node.IsInput || node.IsOutput) {
		return false
	}
	//
	return true
}

// mergeWires folds the flags and attributes of a re-declaration into the
// first declaration.
func mergeWires(first *ast.Node, node *ast.Node) {
	first.IsInput = first.IsInput || node.IsInput
	first.IsOutput = first.IsOutput || node.IsOutput
	first.IsReg = first.IsReg || node.IsReg
	first.IsSigned = first.IsSigned || node.IsSigned
	//
	for name, attr := range node.Attributes {
		first.SetAttribute(name, attr.Clone())
	}
}

// annotateRange canonicalises a range whose endpoints are constant, swapping
// so that left >= right.
func annotateRange(n *ast.Node) bool {
	oldValid := n.RangeValid
	n.RangeValid = false
	n.RangeLeft = -1
	n.RangeRight = 0
	//
	if n.Children[0].Kind == ast.KindConstant {
		n.RangeValid = true
		n.RangeLeft = n.Children[0].Integer()
		//
		if len(n.Children) == 1 {
			n.RangeRight = n.RangeLeft
		}
	}
	//
	if len(n.Children) >= 2 {
		if n.Children[1].Kind == ast.KindConstant {
			n.RangeRight = n.Children[1].Integer()
		} else {
			n.RangeValid = false
		}
	}
	//
	if n.RangeValid && n.RangeLeft >= 0 && n.RangeRight > n.RangeLeft {
		n.RangeLeft, n.RangeRight = n.RangeRight, n.RangeLeft
	}
	//
	return oldValid != n.RangeValid
}

// annotateWire copies the range from a wire's range child, or defaults to a
// single bit.
func annotateWire(n *ast.Node) bool {
	changed := false
	//
	if len(n.Children) > 0 {
		if n.Children[0].RangeValid {
			changed = !n.RangeValid
			n.RangeValid = true
			n.RangeLeft = n.Children[0].RangeLeft
			n.RangeRight = n.Children[0].RangeRight
		}
	} else {
		changed = !n.RangeValid
		n.RangeValid = true
		n.RangeLeft = 0
		n.RangeRight = 0
	}
	//
	return changed
}

// enforceParameterWidth extends or truncates a parameter's value to its
// declared range, converting real values to bits with a warning.
func (p *Elaborator) enforceParameterWidth(n *ast.Node, signHint bool) (bool, error) {
	didSomething := false
	//
	if len(n.Children) > 1 && n.Children[1].Kind == ast.KindRange {
		if !n.Children[1].RangeValid {
			return false, errorAt(n, SyntaxInElaboration, "non-constant width range on parameter declaration")
		}
		//
		width := n.Children[1].RangeLeft - n.Children[1].RangeRight + 1
		//
		if n.Children[0].Kind == ast.KindRealValue {
			value := bitvec.FromFloat(n.Children[0].RealValue, width)
			log.Warnf("%s:%d: converting real value %e to binary %s", n.Filename, n.Line,
				n.Children[0].RealValue, value.String())
			//
			n.Children[0] = ast.ConstBits(value, signHint)
			didSomething = true
		}
		//
		if n.Children[0].Kind == ast.KindConstant {
			if width != n.Children[0].Value.Width() {
				n.Children[0] = ast.ConstBits(
					n.Children[0].Value.Extend(width, n.Children[0].IsSigned),
					n.Children[0].IsSigned)
			}
			//
			n.Children[0].IsSigned = n.IsSigned
		}
	} else if len(n.Children) > 1 && n.Children[1].Kind == ast.KindRealValue &&
		n.Children[0].Kind == ast.KindConstant {
		// A real-typed parameter given an integer value.
		n.Children[0] = ast.NewReal(n.Children[0].AsReal(signHint))
		didSomething = true
	}
	//
	return didSomething, nil
}

// resolveIdentifier binds an identifier to its declaration, synthesising an
// auto-wire in the enclosing module when the name is unknown.
func (p *Elaborator) resolveIdentifier(n *ast.Node) bool {
	decl := p.lookupOrScan(n.Name)
	//
	if decl == nil {
		log.Debugf("%s:%d: creating auto-wire %s in module %s", n.Filename, n.Line, n.Name, p.module.Name)
		//
		decl = ast.NewNamed(ast.KindAutoWire, n.Name)
		p.module.Children = append(p.module.Children, decl)
		p.scope[n.Name] = decl
		n.Target = decl
		//
		return true
	}
	//
	if n.Target != decl {
		n.Target = decl
		return true
	}
	//
	return false
}

// rewriteDefParam splits a dotted defparam path, locates the named cell, and
// appends an equivalent cell parameter override.
func (p *Elaborator) rewriteDefParam(n *ast.Node) error {
	pos := strings.LastIndexByte(n.Name, '.')
	if pos < 0 {
		return errorAt(n, SyntaxInElaboration,
			"defparam `%s` does not contain a dot (module/parameter separator)", n.Name)
	}
	//
	modname, paraname := n.Name[:pos], n.Name[pos+1:]
	//
	cell := p.lookup(modname)
	if cell == nil || cell.Kind != ast.KindCell {
		return errorAt(n, NameResolution, "cannot find cell for defparam `%s.%s`", modname, paraname)
	}
	//
	paraset := n.Clone()
	paraset.Kind = ast.KindParaSet
	paraset.Name = paraname
	// Parameter overrides sit immediately after the cell type.
	cell.Children = insertChildren(cell.Children, 1, []*ast.Node{paraset})
	//
	n.Name = ""
	//
	return nil
}

// rewritePrefix resolves a constant generate prefix (base[index].suffix)
// into a single identifier bearing the expanded name.
func (p *Elaborator) rewritePrefix(n *ast.Node) (*ast.Node, error) {
	if n.Children[0].Kind != ast.KindConstant {
		return nil, errorAt(n, SyntaxInElaboration, "index in generate block prefix is not constant")
	}
	//
	if n.Children[1].Kind != ast.KindIdentifier {
		return nil, errorAt(n, InternalInvariant, "malformed generate block prefix")
	}
	//
	repl := n.Children[1].Clone()
	repl.Name = fmt.Sprintf("%s[%d].%s", n.Name, n.Children[0].Integer(),
		strings.TrimPrefix(n.Children[1].Name, "\\"))
	//
	return repl, nil
}

// rewriteMemoryBitSelect splits mem[addr][bit] into a temporary register
// assigned from mem[addr], with the expression rewritten to select the bit
// from the temporary.
func (p *Elaborator) rewriteMemoryBitSelect(n *ast.Node, inLValue bool) (*ast.Node, error) {
	if n.Target == nil || n.Target.Kind != ast.KindMemory ||
		len(n.Children[0].Children) != 1 || inLValue {
		return nil, errorAt(n, TypeMisuse, "invalid bit-select on memory access")
	}
	//
	memWidth, _, _ := n.Target.MemInfo()
	//
	wireID := fmt.Sprintf("$mem2bits$%s$%s:%d$%d", n.Name, n.Filename, n.Line, p.nextID())
	//
	wire := ast.NewNamed(ast.KindWire, wireID,
		ast.NewNode(ast.KindRange, ast.ConstInt(int64(memWidth-1), true, -1), ast.ConstInt(0, true, -1)))
	//
	if p.block != nil {
		wire.SetAttribute("nosync", ast.ConstInt(1, false, -1))
	}
	//
	p.module.Children = append(p.module.Children, wire)
	//
	if _, err := p.simplifyFully(wire, true, false, false, 1, -1, false, false); err != nil {
		return nil, err
	}
	// The memory read loses its bit select.
	data := n.Clone()
	data.Children = data.Children[:1]
	//
	assign := ast.NewNode(ast.KindAssignEq, ast.NewNamed(ast.KindIdentifier, wireID), data)
	//
	if p.block != nil {
		idx := indexOfChild(p.block.Children, p.blockChild)
		if idx < 0 {
			return nil, errorAt(n, InternalInvariant, "lost position in enclosing block")
		}
		//
		p.block.Children = insertChildren(p.block.Children, idx, []*ast.Node{assign})
		wire.IsReg = true
	} else {
		proc := ast.NewNode(ast.KindAlways, ast.NewNode(ast.KindBlock, assign))
		p.module.Children = append(p.module.Children, proc)
	}
	//
	repl := ast.NewNamed(ast.KindIdentifier, wireID, n.Children[1].Clone())
	repl.Target = wire
	//
	return repl, nil
}

// isMemoryWrite checks whether an assignment's left-hand side is a single
// indexed access to a memory with valid geometry.
func isMemoryWrite(n *ast.Node) bool {
	lhs := n.Children[0]
	//
	return lhs.Kind == ast.KindIdentifier && len(lhs.Children) == 1 &&
		lhs.Target != nil && lhs.Target.Kind == ast.KindMemory &&
		len(lhs.Target.Children) >= 2 &&
		lhs.Target.Children[0].RangeValid && lhs.Target.Children[1].RangeValid
}

// max returns the larger of two machine integers.
func max(a int, b int) int {
	if a >= b {
		return a
	}
	//
	return b
}

// removeChildAt removes the ith element of a child slice.
func removeChildAt(children []*ast.Node, i int) []*ast.Node {
	return append(children[:i], children[i+1:]...)
}

// insertChildren splices a run of nodes into a child slice before index i.
func insertChildren(children []*ast.Node, i int, nodes []*ast.Node) []*ast.Node {
	result := make([]*ast.Node, 0, len(children)+len(nodes))
	result = append(result, children[:i]...)
	result = append(result, nodes...)
	result = append(result, children[i:]...)
	//
	return result
}

// indexOfChild locates a given node within a child slice, or -1.
func indexOfChild(children []*ast.Node, node *ast.Node) int {
	for i, c := range children {
		if c == node {
			return i
		}
	}
	//
	return -1
}
