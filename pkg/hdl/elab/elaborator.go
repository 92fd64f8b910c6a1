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

// Package elab implements the elaboration core: the pass which converts a
// freshly parsed module AST into a simplified AST suitable for lowering to an
// RTL netlist.  Elaboration resolves names through lexical scopes,
// substitutes parameters, unrolls generate constructs and loops, inlines
// functions and tasks, folds constants over four-valued arithmetic, expands
// dynamic-range assignments, decides which memories to demote to registers,
// and rewrites surviving memory accesses into explicit read and write ports.
package elab

import (
	"github.com/consensys/go-elab/pkg/hdl/ast"
)

// Config carries the process-wide flags affecting elaboration.  Both flags
// are consulted once, when memory demotion runs between the two simplifier
// stages.
type Config struct {
	// Mem2Reg forces every memory to be demoted to registers.
	Mem2Reg bool
	// NoMem2Reg disables memory demotion entirely.
	NoMem2Reg bool
}

// Simplify elaborates a module in place, repeatedly rewriting until no
// further change is possible.  On error the module is abandoned in an
// unspecified intermediate state.
func Simplify(module *ast.Node, config Config) error {
	return NewElaborator(config).Simplify(module)
}

// Elaborator holds the mutable state threaded through a single elaboration:
// the lexical scope, the block pointers used when rewrites splice statements
// around the statement currently being visited, and the counter from which
// synthesised names are minted.  An Elaborator must only be used from one
// goroutine; independent designs may be elaborated concurrently on separate
// Elaborators provided they share no AST nodes.
type Elaborator struct {
	config Config
	// Innermost declaration for each identifier currently in scope.
	scope map[string]*ast.Node
	// Module currently being elaborated.
	module *ast.Node
	// Innermost block, and the statement within it, being visited.  Rewrites
	// which splice statements do so immediately before blockChild.
	block      *ast.Node
	blockChild *ast.Node
	// Outermost block of the enclosing process, which receives default
	// assignments synthesised for assertions and memory write ports.
	topBlock *ast.Node
	// Monotonic counter for synthesised names.
	autoidx int
}

// NewElaborator constructs an elaborator with a given configuration.
func NewElaborator(config Config) *Elaborator {
	return &Elaborator{
		config: config,
		scope:  make(map[string]*ast.Node),
	}
}

// Simplify elaborates a module in place.  This drives the staged fixed
// points: stage 1 (scope resolution, parameter substitution, generate
// evaluation and folding) runs until quiescent, then memory demotion, then
// stage 2 (assertion lowering, memory port rewrites and inlining
// finalisation) until quiescent.
func (p *Elaborator) Simplify(module *ast.Node) error {
	if module.Kind != ast.KindModule {
		return errorAt(module, InternalInvariant, "simplify requires a module root")
	}
	//
	if _, err := p.simplifyFully(module, false, false, false, 1, -1, false, false); err != nil {
		return err
	}
	//
	if err := p.mem2regAsNeeded(module); err != nil {
		return err
	}
	//
	if _, err := p.simplifyFully(module, false, false, false, 2, -1, false, false); err != nil {
		return err
	}
	//
	return nil
}

// nextID mints the next unique index for a synthesised name.
func (p *Elaborator) nextID() int {
	id := p.autoidx
	p.autoidx++
	//
	return id
}

// simplifyFully drives a node to its fixed point under a given set of hints,
// reporting whether anything changed at all.
func (p *Elaborator) simplifyFully(n *ast.Node, constFold bool, atZero bool, inLValue bool,
	stage int, widthHint int, signHint bool, inParam bool) (bool, error) {
	changed := false
	//
	for {
		c, err := p.simplify(n, constFold, atZero, inLValue, stage, widthHint, signHint, inParam)
		if err != nil {
			return changed, err
		} else if !c {
			return changed, nil
		}
		//
		changed = true
	}
}

// simplifyUntilPrep drives a node until it either stops changing or reports
// itself quiescent via its fixed-point marker.
func (p *Elaborator) simplifyUntilPrep(n *ast.Node, constFold bool, atZero bool, inLValue bool,
	stage int, widthHint int, signHint bool, inParam bool) (bool, error) {
	changed := false
	//
	for !n.BasicPrep {
		c, err := p.simplify(n, constFold, atZero, inLValue, stage, widthHint, signHint, inParam)
		if err != nil {
			return changed, err
		} else if !c {
			return changed, nil
		}
		//
		changed = true
	}
	//
	return changed, nil
}
