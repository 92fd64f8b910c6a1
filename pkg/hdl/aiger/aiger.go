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

// Package aiger provides a thin reader for ASCII AIGER (aag) netlists,
// producing a module AST ready for elaboration.  Inputs, latches, outputs
// and and-gates become wires, processes and continuous assignments.
package aiger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/go-elab/pkg/hdl/ast"
	"github.com/consensys/go-elab/pkg/util"
	"github.com/consensys/go-elab/pkg/util/source"
)

// Parse reads an ASCII AIGER file into a module named "aig".  Latches are
// clocked by a synthesised input named by clkName.
func Parse(srcfile *source.File, clkName string) (*ast.Node, error) {
	p := &parser{
		srcfile: srcfile,
		lines:   strings.Split(string(srcfile.Contents()), "\n"),
		module:  ast.NewNamed(ast.KindModule, "aig"),
		wires:   make(map[string]*ast.Node),
	}
	//
	if err := p.parse(clkName); err != nil {
		return nil, err
	}
	//
	return p.module, nil
}

type parser struct {
	srcfile *source.File
	lines   []string
	cursor  int
	module  *ast.Node
	// Wires created so far, by name.
	wires map[string]*ast.Node
	// Port numbering follows declaration order.
	nextPort int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", p.srcfile.Filename(), p.cursor, fmt.Sprintf(format, args...))
}

// nextFields consumes the next line and splits it into fields.
func (p *parser) nextFields() ([]string, error) {
	if p.cursor >= len(p.lines) {
		return nil, p.errorf("unexpected end of file")
	}
	//
	fields := strings.Fields(p.lines[p.cursor])
	p.cursor++
	//
	return fields, nil
}

// literals parses a line of exactly n unsigned literals, tolerating the
// optional extras of AIGER 1.9.
func (p *parser) literals(fields []string, n int, what string) ([]uint, error) {
	if len(fields) < n {
		return nil, p.errorf("line cannot be interpreted as %s", what)
	}
	//
	values := make([]uint, len(fields))
	//
	for i, field := range fields {
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, p.errorf("line cannot be interpreted as %s", what)
		}
		//
		values[i] = uint(v)
	}
	//
	return values, nil
}

func (p *parser) parse(clkName string) error {
	header, err := p.nextFields()
	if err != nil {
		return err
	}
	//
	if len(header) < 6 || header[0] != "aag" {
		return p.errorf("unsupported AIGER file")
	}
	// M I L O A, optionally followed by B C J F (AIGER 1.9).
	counts, err := p.literals(header[1:], 5, "an AIGER header")
	if err != nil {
		return err
	}
	//
	for len(counts) < 9 {
		counts = append(counts, 0)
	}
	//
	nInputs, nLatches, nOutputs, nAnds := counts[1], counts[2], counts[3], counts[4]
	nSkipped := counts[5] + counts[6] + counts[7] + counts[8]
	// Inputs
	for i := uint(0); i < nInputs; i++ {
		fields, err := p.nextFields()
		if err != nil {
			return err
		}
		//
		lits, err := p.literals(fields, 1, "an input")
		if err != nil {
			return err
		}
		//
		if lits[0]&1 != 0 {
			return p.errorf("inverted input literal %d", lits[0])
		}
		//
		wire, err := p.wireForLiteral(lits[0])
		if err != nil {
			return err
		}
		//
		p.markInput(wire)
	}
	// Latches
	var clk *ast.Node
	//
	if nLatches > 0 {
		clk = p.addWire(clkName)
		p.markInput(clk)
	}
	//
	for i := uint(0); i < nLatches; i++ {
		fields, err := p.nextFields()
		if err != nil {
			return err
		}
		//
		lits, err := p.literals(fields, 2, "a latch")
		if err != nil {
			return err
		}
		//
		if lits[0]&1 != 0 {
			return p.errorf("inverted latch output literal %d", lits[0])
		}
		//
		q, err := p.wireForLiteral(lits[0])
		if err != nil {
			return err
		}
		//
		d, err := p.wireForLiteral(lits[1])
		if err != nil {
			return err
		}
		//
		q.IsReg = true
		// A latch becomes a posedge process on the clock.
		proc := ast.NewNode(ast.KindAlways,
			ast.NewNamed(ast.KindPosEdge, "", ast.NewNamed(ast.KindIdentifier, clk.Name)),
			ast.NewNode(ast.KindBlock,
				ast.NewNode(ast.KindAssignLe,
					ast.NewNamed(ast.KindIdentifier, q.Name),
					ast.NewNamed(ast.KindIdentifier, d.Name))))
		//
		p.module.Children = append(p.module.Children, proc)
		// Reset logic is optional in AIGER 1.9; absent means zero.
		reset := util.Some(uint(0))
		//
		if len(lits) > 2 {
			if lits[2] == lits[0] {
				// Uninitialised latch.
				reset = util.None[uint]()
			} else if lits[2] > 1 {
				return p.errorf("invalid reset literal %d for latch", lits[2])
			} else {
				reset = util.Some(lits[2])
			}
		}
		//
		if reset.HasValue() {
			q.SetAttribute("init", ast.ConstInt(int64(reset.Unwrap()), false, 1))
		}
	}
	// Outputs
	for i := uint(0); i < nOutputs; i++ {
		fields, err := p.nextFields()
		if err != nil {
			return err
		}
		//
		lits, err := p.literals(fields, 1, "an output")
		if err != nil {
			return err
		}
		//
		wire, err := p.wireForLiteral(lits[0])
		if err != nil {
			return err
		}
		//
		wire.IsOutput = true
		wire.PortID = p.nextPortID()
	}
	// Bad state, invariant, justice and fairness sections are skipped.
	for i := uint(0); i < nSkipped; i++ {
		if _, err := p.nextFields(); err != nil {
			return err
		}
	}
	// And gates
	for i := uint(0); i < nAnds; i++ {
		fields, err := p.nextFields()
		if err != nil {
			return err
		}
		//
		lits, err := p.literals(fields, 3, "an AND")
		if err != nil {
			return err
		}
		//
		if lits[0]&1 != 0 {
			return p.errorf("inverted AND output literal %d", lits[0])
		}
		//
		y, err := p.wireForLiteral(lits[0])
		if err != nil {
			return err
		}
		//
		a, err := p.wireForLiteral(lits[1])
		if err != nil {
			return err
		}
		//
		b, err := p.wireForLiteral(lits[2])
		if err != nil {
			return err
		}
		//
		assign := ast.NewNode(ast.KindAssign,
			ast.NewNamed(ast.KindIdentifier, y.Name),
			ast.NewNode(ast.KindBitAnd,
				ast.NewNamed(ast.KindIdentifier, a.Name),
				ast.NewNamed(ast.KindIdentifier, b.Name)))
		//
		p.module.Children = append(p.module.Children, assign)
	}
	// The remainder holds the optional symbol table and comments.
	return nil
}

// wireForLiteral resolves an AIGER literal to a wire, synthesising the wire
// (and, for odd literals, the inverter driving it) on first use.  Literals 0
// and 1 map to constant driver wires.
func (p *parser) wireForLiteral(literal uint) (*ast.Node, error) {
	variable := literal >> 1
	invert := literal&1 != 0
	//
	if variable == 0 {
		// Constant false (or true when inverted).
		name := "$false"
		value := int64(0)
		//
		if invert {
			name, value = "$true", 1
		}
		//
		if wire, ok := p.wires[name]; ok {
			return wire, nil
		}
		//
		wire := p.addWire(name)
		assign := ast.NewNode(ast.KindAssign,
			ast.NewNamed(ast.KindIdentifier, name), ast.ConstInt(value, false, 1))
		p.module.Children = append(p.module.Children, assign)
		//
		return wire, nil
	}
	//
	name := fmt.Sprintf("n%d", variable)
	if invert {
		name += "_inv"
	}
	//
	if wire, ok := p.wires[name]; ok {
		return wire, nil
	}
	//
	wire := p.addWire(name)
	//
	if invert {
		// The inverted form is always driven from the plain form, which is
		// created on demand.
		base, err := p.wireForLiteral(literal & ^uint(1))
		if err != nil {
			return nil, err
		}
		//
		assign := ast.NewNode(ast.KindAssign,
			ast.NewNamed(ast.KindIdentifier, wire.Name),
			ast.NewNode(ast.KindBitNot, ast.NewNamed(ast.KindIdentifier, base.Name)))
		//
		p.module.Children = append(p.module.Children, assign)
	}
	//
	return wire, nil
}

func (p *parser) addWire(name string) *ast.Node {
	wire := ast.NewNamed(ast.KindWire, name)
	p.wires[name] = wire
	p.module.Children = append(p.module.Children, wire)
	//
	return wire
}

func (p *parser) markInput(wire *ast.Node) {
	if !wire.IsInput {
		wire.IsInput = true
		wire.PortID = p.nextPortID()
	}
}

func (p *parser) nextPortID() int {
	p.nextPort++
	return p.nextPort
}
