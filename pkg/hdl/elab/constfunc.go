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
	"github.com/consensys/go-elab/pkg/hdl/bitvec"
)

// constEvalBudget bounds the number of statements the constant function
// evaluator will consume, so that a pathologically looping function fails
// rather than hanging the elaborator.
const constEvalBudget = 100000

// varInfo is the evaluator's view of one function-local variable.
type varInfo struct {
	val    bitvec.Vector
	offset int
	signed bool
}

// evalConstFunction interprets a cloned function body against constant
// arguments, yielding the constant result.  The evaluator maintains a work
// queue of statements, initially the function's block, and consumes them one
// at a time; loops are rewritten into the queue rather than recursed into.
func (p *Elaborator) evalConstFunction(fn *ast.Node, fcall *ast.Node) (*ast.Node, error) {
	backup := scopeBackup{}
	variables := make(map[string]*varInfo)
	//
	defer p.restoreScope(backup)
	//
	var block *ast.Node
	//
	argidx := 0
	//
	for _, child := range fn.Children {
		switch child.Kind {
		case ast.KindBlock:
			if block != nil {
				return nil, errorAt(fn, InternalInvariant, "function with two bodies")
			}
			//
			block = child

		case ast.KindWire:
			if _, err := p.simplifyFully(child, true, false, false, 1, -1, false, true); err != nil {
				return nil, err
			}
			//
			if !child.RangeValid {
				return nil, errorAt(child, SyntaxInElaboration,
					"cannot determine size of variable %s (called from %s:%d)",
					child.Name, fcall.Filename, fcall.Line)
			}
			//
			width := child.RangeLeft - child.RangeRight + 1
			//
			v := &varInfo{
				val:    bitvec.NewFilled(width, bitvec.X),
				offset: minInt(child.RangeLeft, child.RangeRight),
				signed: child.IsSigned,
			}
			//
			if child.IsInput && argidx < len(fcall.Children) {
				arg := fcall.Children[argidx]
				v.val = arg.BitsAt(width, arg.IsSigned)
				argidx++
			}
			//
			variables[child.Name] = v
			p.bind(backup, child)

		default:
			// A statement outside any block; queue it on its own.
			if block != nil {
				return nil, errorAt(fn, InternalInvariant, "function with two bodies")
			}
			//
			block = ast.NewNode(ast.KindBlock, child.Clone())
		}
	}
	//
	if block == nil {
		return nil, errorAt(fn, InternalInvariant, "function without a body")
	}
	//
	result, ok := variables[fn.Name]
	if !ok {
		return nil, errorAt(fn, InternalInvariant, "function %s has no result variable", fn.Name)
	}
	//
	for steps := 0; len(block.Children) > 0; steps++ {
		if steps >= constEvalBudget {
			return nil, errorAt(fcall, SyntaxInElaboration,
				"constant function %s exceeded the evaluation budget", fn.Name)
		}
		//
		stmt := block.Children[0]
		//
		switch stmt.Kind {
		case ast.KindAssignEq:
			done, err := p.evalConstAssign(stmt, variables, fcall)
			if err != nil {
				return nil, err
			}
			// The assignment may have been rewritten (e.g. into a case over
			// a dynamic range); if so it is reconsidered.
			if done {
				block.Children = removeChildAt(block.Children, 0)
			}

		case ast.KindFor:
			// Rewrite into initialiser-then-while.
			body := stmt.Children[3]
			body.Children = append(body.Children, stmt.Children[2])
			//
			init := stmt.Children[0]
			stmt.Children = []*ast.Node{stmt.Children[1], body}
			stmt.Kind = ast.KindWhile
			//
			block.Children = insertChildren(block.Children, 0, []*ast.Node{init})

		case ast.KindWhile:
			cond := stmt.Children[0].Clone()
			if err := p.replaceVariables(cond, variables, fcall); err != nil {
				return nil, err
			}
			//
			if _, err := p.simplifyFully(cond, true, false, false, 1, -1, false, true); err != nil {
				return nil, err
			}
			//
			if cond.Kind != ast.KindConstant {
				return nil, errorAt(stmt, SyntaxInElaboration,
					"non-constant expression in constant function (called from %s:%d)",
					fcall.Filename, fcall.Line)
			}
			//
			if cond.AsBool() {
				block.Children = insertChildren(block.Children, 0, []*ast.Node{stmt.Children[1].Clone()})
			} else {
				block.Children = removeChildAt(block.Children, 0)
			}

		case ast.KindRepeat:
			num := stmt.Children[0].Clone()
			if err := p.replaceVariables(num, variables, fcall); err != nil {
				return nil, err
			}
			//
			if _, err := p.simplifyFully(num, true, false, false, 1, -1, false, true); err != nil {
				return nil, err
			}
			//
			if num.Kind != ast.KindConstant {
				return nil, errorAt(stmt, SyntaxInElaboration,
					"non-constant expression in constant function (called from %s:%d)",
					fcall.Filename, fcall.Line)
			}
			//
			block.Children = removeChildAt(block.Children, 0)
			//
			for i := 0; i < num.Integer(); i++ {
				block.Children = insertChildren(block.Children, 0, []*ast.Node{stmt.Children[1].Clone()})
			}

		case ast.KindCase:
			selected, err := p.evalConstCase(stmt, variables, fcall)
			if err != nil {
				return nil, err
			}
			//
			block.Children = removeChildAt(block.Children, 0)
			//
			if selected != nil {
				block.Children = insertChildren(block.Children, 0, []*ast.Node{selected.Clone()})
			}

		case ast.KindBlock:
			block.Children = insertChildren(removeChildAt(block.Children, 0), 0, stmt.Children)

		default:
			return nil, errorAt(stmt, SyntaxInElaboration,
				"unsupported language construct in constant function (called from %s:%d)",
				fcall.Filename, fcall.Line)
		}
	}
	//
	return ast.ConstBits(result.val, result.signed), nil
}

// evalConstAssign executes one blocking assignment of a constant function,
// honouring bit-range selects on the left-hand side.  Returns false when the
// statement was rewritten into something else and must be reconsidered.
func (p *Elaborator) evalConstAssign(stmt *ast.Node, variables map[string]*varInfo, fcall *ast.Node) (bool, error) {
	if err := p.replaceVariables(stmt.Children[1], variables, fcall); err != nil {
		return false, err
	}
	//
	if _, err := p.simplifyFully(stmt, true, false, false, 1, -1, false, true); err != nil {
		return false, err
	}
	//
	if stmt.Kind != ast.KindAssignEq {
		return false, nil
	}
	//
	if stmt.Children[1].Kind != ast.KindConstant {
		return false, errorAt(stmt, SyntaxInElaboration,
			"non-constant expression in constant function (called from %s:%d)",
			fcall.Filename, fcall.Line)
	}
	//
	lhs := stmt.Children[0]
	//
	if lhs.Kind != ast.KindIdentifier {
		return false, errorAt(stmt, SyntaxInElaboration,
			"unsupported composite left-hand side in constant function (called from %s:%d)",
			fcall.Filename, fcall.Line)
	}
	//
	v, ok := variables[lhs.Name]
	if !ok {
		return false, errorAt(stmt, SyntaxInElaboration,
			"assignment to non-local variable in constant function (called from %s:%d)",
			fcall.Filename, fcall.Line)
	}
	//
	if len(lhs.Children) == 0 {
		v.val = stmt.Children[1].BitsAt(v.val.Width(), stmt.Children[1].IsSigned)
	} else {
		r := lhs.Children[0]
		if !r.RangeValid {
			return false, errorAt(r, SyntaxInElaboration,
				"non-constant range (called from %s:%d)", fcall.Filename, fcall.Line)
		}
		//
		offset := minInt(r.RangeLeft, r.RangeRight)
		width := minInt(r.RangeLeft-r.RangeRight+1, v.val.Width()-(offset-v.offset))
		//
		bits := stmt.Children[1].BitsAt(v.val.Width(), stmt.Children[1].IsSigned)
		//
		for i := 0; i < width; i++ {
			v.val.Set(i+offset-v.offset, bits.Get(i))
		}
	}
	//
	return true, nil
}

// evalConstCase selects the branch of a case statement within a constant
// function, or nil when no arm matches and there is no default.
func (p *Elaborator) evalConstCase(stmt *ast.Node, variables map[string]*varInfo, fcall *ast.Node) (*ast.Node, error) {
	expr := stmt.Children[0].Clone()
	if err := p.replaceVariables(expr, variables, fcall); err != nil {
		return nil, err
	}
	//
	if _, err := p.simplifyFully(expr, true, false, false, 1, -1, false, true); err != nil {
		return nil, err
	}
	//
	var selected *ast.Node
	//
	for i := 1; i < len(stmt.Children); i++ {
		cond := stmt.Children[i]
		if cond.Kind != ast.KindCond {
			return nil, errorAt(cond, InternalInvariant, "malformed case arm")
		}
		//
		if cond.Children[0].Kind == ast.KindDefault {
			selected = cond.Children[len(cond.Children)-1]
			continue
		}
		//
		foundMatch := false
		//
		for j := 0; j+1 < len(cond.Children) && !foundMatch; j++ {
			value := cond.Children[j].Clone()
			if err := p.replaceVariables(value, variables, fcall); err != nil {
				return nil, err
			}
			//
			check := ast.NewNode(ast.KindEq, expr.Clone(), value)
			if _, err := p.simplifyFully(check, true, false, false, 1, -1, false, true); err != nil {
				return nil, err
			}
			//
			if check.Kind != ast.KindConstant {
				return nil, errorAt(stmt, SyntaxInElaboration,
					"non-constant expression in constant function (called from %s:%d)",
					fcall.Filename, fcall.Line)
			}
			//
			foundMatch = check.AsBool()
		}
		//
		if foundMatch {
			return cond.Children[len(cond.Children)-1], nil
		}
	}
	//
	return selected, nil
}

// replaceVariables substitutes the current values of function-local
// variables into an expression, honouring bit-range selects.
func (p *Elaborator) replaceVariables(n *ast.Node, variables map[string]*varInfo, fcall *ast.Node) error {
	if n.Kind == ast.KindIdentifier {
		if v, ok := variables[n.Name]; ok {
			offset, width := v.offset, v.val.Width()
			//
			if len(n.Children) != 0 {
				if len(n.Children) != 1 || n.Children[0].Kind != ast.KindRange {
					return errorAt(n, SyntaxInElaboration,
						"memory access in constant function is not supported (called from %s:%d)",
						fcall.Filename, fcall.Line)
				}
				//
				if err := p.replaceVariables(n.Children[0], variables, fcall); err != nil {
					return err
				}
				//
				if _, err := p.simplifyFully(n, true, false, false, 1, -1, false, true); err != nil {
					return err
				}
				// The identifier may already have been substituted away.
				if n.Kind != ast.KindIdentifier {
					return nil
				}
				//
				if !n.Children[0].RangeValid {
					return errorAt(n, SyntaxInElaboration,
						"non-constant range (called from %s:%d)", fcall.Filename, fcall.Line)
				}
				//
				r := n.Children[0]
				offset = minInt(r.RangeLeft, r.RangeRight)
				width = minInt(r.RangeLeft-r.RangeRight+1, width)
			}
			//
			offset -= v.offset
			//
			data := bitvec.New(width)
			for i := 0; i < width; i++ {
				data.Set(i, v.val.Get(i+offset))
			}
			//
			n.ReplaceWith(ast.ConstBits(data, v.signed))
			//
			return nil
		}
	}
	//
	for _, child := range n.Children {
		if err := p.replaceVariables(child, variables, fcall); err != nil {
			return err
		}
	}
	//
	return nil
}
