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
	"github.com/consensys/go-elab/pkg/hdl/ast"
)

// detectSignWidth computes the width and signedness of an expression,
// bottom-up, per the language rules for context-determined versus
// self-determined operands.  An expression is signed only if every
// contributing operand is signed; its width is the maximum over the
// contributing operands.  The isReal result reports whether any contributing
// operand was a real number.
func (p *Elaborator) detectSignWidth(n *ast.Node) (width int, sign bool, isReal bool, err error) {
	width, sign = -1, true
	//
	err = p.signWidthWorker(n, &width, &sign, &isReal)
	//
	if width < 0 {
		width = 1
	}
	//
	return width, sign, isReal, err
}

// signWidthWorker accumulates width and signedness facts for a given
// expression into the provided accumulators.
//
//nolint:gocyclo
func (p *Elaborator) signWidthWorker(n *ast.Node, width *int, sign *bool, isReal *bool) error {
	switch n.Kind {
	case ast.KindConstant:
		growWidth(width, n.Value.Width())
		*sign = *sign && n.IsSigned

	case ast.KindRealValue:
		*isReal = true
		growWidth(width, 32)

	case ast.KindIdentifier:
		return p.identifierSignWidth(n, width, sign)

	case ast.KindToBits:
		if n.Children[0].Kind != ast.KindConstant {
			return errorAt(n, SyntaxInElaboration, "width of conversion is not constant")
		}
		//
		growWidth(width, n.Children[0].Integer())
		*sign = *sign && n.Children[1].IsSigned

	case ast.KindToSigned:
		subWidth, _, err := p.selfDetermined(n.Children[0], isReal)
		if err != nil {
			return err
		}
		//
		growWidth(width, subWidth)

	case ast.KindToUnsigned:
		subWidth, _, err := p.selfDetermined(n.Children[0], isReal)
		if err != nil {
			return err
		}
		//
		growWidth(width, subWidth)
		//
		*sign = false

	case ast.KindConcat:
		total := 0
		//
		for _, child := range n.Children {
			subWidth, _, err := p.selfDetermined(child, isReal)
			if err != nil {
				return err
			}
			//
			total += subWidth
		}
		//
		growWidth(width, total)
		//
		*sign = false

	case ast.KindReplicate:
		if n.Children[0].Kind != ast.KindConstant {
			return errorAt(n, SyntaxInElaboration, "replication count is not constant")
		}
		//
		subWidth, _, err := p.selfDetermined(n.Children[1], isReal)
		if err != nil {
			return err
		}
		//
		growWidth(width, n.Children[0].Integer()*subWidth)
		//
		*sign = false

	case ast.KindBitNot, ast.KindNeg, ast.KindPos:
		return p.signWidthWorker(n.Children[0], width, sign, isReal)

	case ast.KindBitAnd, ast.KindBitOr, ast.KindBitXor, ast.KindBitXnor,
		ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv, ast.KindMod:
		if err := p.signWidthWorker(n.Children[0], width, sign, isReal); err != nil {
			return err
		}
		//
		return p.signWidthWorker(n.Children[1], width, sign, isReal)

	case ast.KindShiftLeft, ast.KindShiftRight, ast.KindShiftSLeft,
		ast.KindShiftSRight, ast.KindPow:
		// The right operand is self-determined and contributes nothing.
		return p.signWidthWorker(n.Children[0], width, sign, isReal)

	case ast.KindLt, ast.KindLe, ast.KindEq, ast.KindNe, ast.KindEqx,
		ast.KindNex, ast.KindGe, ast.KindGt:
		growWidth(width, 1)
		*sign = false

	case ast.KindReduceAnd, ast.KindReduceOr, ast.KindReduceXor,
		ast.KindReduceXnor, ast.KindReduceBool,
		ast.KindLogicNot, ast.KindLogicAnd, ast.KindLogicOr:
		growWidth(width, 1)
		*sign = false

	case ast.KindTernary:
		if err := p.signWidthWorker(n.Children[1], width, sign, isReal); err != nil {
			return err
		}
		//
		return p.signWidthWorker(n.Children[2], width, sign, isReal)

	case ast.KindMemRd:
		target := n.Target
		if target == nil {
			target = p.lookupOrScan(n.Name)
		}
		//
		if target == nil || target.Kind != ast.KindMemory {
			return errorAt(n, InternalInvariant, "memory read port has no memory")
		}
		//
		memWidth, _, _ := target.MemInfo()
		growWidth(width, memWidth)
		//
		*sign = *sign && target.IsSigned

	default:
		return errorAt(n, InternalInvariant,
			"cannot detect width of %s expression", n.Kind)
	}
	//
	return nil
}

// identifierSignWidth determines the contribution of an identifier, which
// depends on what it resolves to and on any bit or part select applied.
func (p *Elaborator) identifierSignWidth(n *ast.Node, width *int, sign *bool) error {
	target := n.Target
	if target == nil {
		target = p.lookupOrScan(n.Name)
	}
	//
	if target == nil {
		return errorAt(n, NameResolution, "failed to resolve identifier %s", n.Name)
	}
	//
	thisWidth := 1
	//
	switch target.Kind {
	case ast.KindParameter, ast.KindLocalParam:
		if target.Children[0].Kind == ast.KindConstant {
			thisWidth = target.Children[0].Value.Width()
		} else if target.Children[0].Kind == ast.KindRealValue {
			thisWidth = 32
		}
	case ast.KindWire, ast.KindAutoWire:
		if target.RangeValid {
			thisWidth = target.RangeLeft - target.RangeRight + 1
		}
	case ast.KindMemory:
		memWidth, _, _ := target.MemInfo()
		thisWidth = memWidth
	case ast.KindGenVar:
		thisWidth = 32
	default:
		return errorAt(n, InternalInvariant,
			"identifier %s resolves to unexpected %s declaration", n.Name, target.Kind)
	}
	// A bit or part select overrides the declared width.
	if len(n.Children) > 0 && n.Children[0].Kind == ast.KindRange {
		r := n.Children[0]
		if r.RangeValid {
			thisWidth = r.RangeLeft - r.RangeRight + 1
		} else {
			thisWidth = 1
		}
	}
	//
	growWidth(width, thisWidth)
	//
	*sign = *sign && target.IsSigned
	//
	return nil
}

// growWidth raises an accumulated width to at least a given value.
func growWidth(width *int, w int) {
	if w > *width {
		*width = w
	}
}

// selfDetermined computes the width of a self-determined sub-expression,
// which does not inherit the accumulated context.
func (p *Elaborator) selfDetermined(n *ast.Node, isReal *bool) (int, bool, error) {
	width, sign := -1, true
	//
	if err := p.signWidthWorker(n, &width, &sign, isReal); err != nil {
		return 0, false, err
	}
	//
	if width < 0 {
		width = 1
	}
	//
	return width, sign, nil
}
