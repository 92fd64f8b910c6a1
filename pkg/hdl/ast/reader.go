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
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/go-elab/pkg/hdl/bitvec"
	"github.com/consensys/go-elab/pkg/util/source"
	"github.com/consensys/go-elab/pkg/util/source/sexp"
)

// Read parses a given source file into zero or more AST nodes, one per
// top-level S-expression.  Each node records the file and line it originated
// from, for use in subsequent error reporting.
func Read(srcfile *source.File) ([]*Node, *source.SyntaxError) {
	terms, srcmap, err := sexp.ParseAll(srcfile)
	if err != nil {
		return nil, err
	}
	//
	r := reader{srcfile, srcmap}
	nodes := make([]*Node, len(terms))
	//
	for i, term := range terms {
		node, err := r.readNode(term)
		if err != nil {
			return nil, err
		}
		//
		nodes[i] = node
	}
	//
	return nodes, nil
}

type reader struct {
	srcfile *source.File
	srcmap  *source.Map[sexp.SExp]
}

func (r *reader) readNode(term sexp.SExp) (*Node, *source.SyntaxError) {
	list := term.AsList()
	if list == nil || list.Len() == 0 {
		return nil, r.srcmap.SyntaxError(term, "expected node")
	}
	//
	head := list.Get(0).AsSymbol()
	if head == nil {
		return nil, r.srcmap.SyntaxError(list.Get(0), "expected node kind")
	}
	// The str spelling is shorthand for a string constant.
	if head.Value == "str" {
		return r.readString(list)
	}
	//
	kind, ok := KindOf(head.Value)
	if !ok {
		return nil, r.srcmap.SyntaxError(head, fmt.Sprintf("unknown node kind %q", head.Value))
	}
	//
	node := NewNode(kind)
	node.Filename = r.srcfile.Filename()
	node.Line = r.srcfile.LineNumber(r.srcmap.Get(term))
	//
	for _, elem := range list.Elements[1:] {
		if symbol := elem.AsSymbol(); symbol != nil {
			if err := r.readSymbol(node, symbol); err != nil {
				return nil, err
			}
			//
			continue
		}
		// Attribute or child
		sub := elem.AsList()
		if sub.MatchSymbols(2, "attr") {
			if err := r.readAttribute(node, sub); err != nil {
				return nil, err
			}
			//
			continue
		}
		//
		child, err := r.readNode(elem)
		if err != nil {
			return nil, err
		}
		//
		node.Children = append(node.Children, child)
	}
	//
	return node, nil
}

// readSymbol interprets a bare symbol occurring within a node: either the
// node's name (prefixed @), a flag (prefixed !), or a literal payload for
// constant kinds.
func (r *reader) readSymbol(node *Node, symbol *sexp.Symbol) *source.SyntaxError {
	value := symbol.Value
	//
	switch {
	case strings.HasPrefix(value, "@"):
		node.Name = value[1:]
		return nil
	case strings.HasPrefix(value, "!"):
		return r.readFlag(node, symbol)
	case node.Kind == KindConstant:
		vec, signed, err := parseLiteral(value)
		if err != nil {
			return r.srcmap.SyntaxError(symbol, err.Error())
		}
		//
		node.Value = vec
		node.IsSigned = signed
		//
		return nil
	case node.Kind == KindRealValue:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return r.srcmap.SyntaxError(symbol, "malformed real literal")
		}
		//
		node.RealValue = f
		//
		return nil
	}
	//
	return r.srcmap.SyntaxError(symbol, fmt.Sprintf("unexpected symbol %q", value))
}

func (r *reader) readFlag(node *Node, symbol *sexp.Symbol) *source.SyntaxError {
	switch flag := symbol.Value; {
	case flag == "!reg":
		node.IsReg = true
	case flag == "!signed":
		node.IsSigned = true
	case flag == "!input":
		node.IsInput = true
	case flag == "!output":
		node.IsOutput = true
	case strings.HasPrefix(flag, "!port="):
		id, err := strconv.Atoi(flag[6:])
		if err != nil {
			return r.srcmap.SyntaxError(symbol, "malformed port id")
		}
		//
		node.PortID = id
	default:
		return r.srcmap.SyntaxError(symbol, fmt.Sprintf("unknown flag %q", flag))
	}
	//
	return nil
}

func (r *reader) readAttribute(node *Node, list *sexp.List) *source.SyntaxError {
	if list.Len() != 3 {
		return r.srcmap.SyntaxError(list, "malformed attribute")
	}
	//
	name := list.Get(1).AsSymbol()
	if name == nil {
		return r.srcmap.SyntaxError(list.Get(1), "expected attribute name")
	}
	//
	value, err := r.readNode(list.Get(2))
	if err != nil {
		return err
	}
	//
	node.SetAttribute(name.Value, value)
	//
	return nil
}

func (r *reader) readString(list *sexp.List) (*Node, *source.SyntaxError) {
	if list.Len() != 2 || list.Get(1).AsSymbol() == nil {
		return nil, r.srcmap.SyntaxError(list, "malformed string constant")
	}
	//
	node := ConstString(list.Get(1).AsSymbol().Value)
	node.Filename = r.srcfile.Filename()
	node.Line = r.srcfile.LineNumber(r.srcmap.Get(list))
	//
	return node, nil
}

// parseLiteral parses a Verilog-style constant literal: either a bare
// (possibly negative) decimal integer, which takes the default width of 32
// bits and is signed, or a sized literal of the form width'[s]base digits
// with base one of b, d or h.
func parseLiteral(text string) (bitvec.Vector, bool, error) {
	tick := strings.IndexRune(text, '\'')
	//
	if tick < 0 {
		value, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return bitvec.Vector{}, false, fmt.Errorf("malformed constant literal %q", text)
		}
		//
		return bitvec.FromBigInt(value, 32), true, nil
	}
	//
	width, err := strconv.Atoi(text[:tick])
	if err != nil || width <= 0 {
		return bitvec.Vector{}, false, fmt.Errorf("malformed constant width in %q", text)
	}
	//
	rest := text[tick+1:]
	signed := false
	//
	if strings.HasPrefix(rest, "s") {
		signed = true
		rest = rest[1:]
	}
	//
	if len(rest) < 2 {
		return bitvec.Vector{}, false, fmt.Errorf("malformed constant literal %q", text)
	}
	//
	base, digits := rest[0], rest[1:]
	//
	switch base {
	case 'b':
		return parseBinary(digits, width, signed)
	case 'd':
		value, ok := new(big.Int).SetString(digits, 10)
		if !ok {
			return bitvec.Vector{}, false, fmt.Errorf("malformed decimal digits in %q", text)
		}
		//
		return bitvec.FromBigInt(value, width), signed, nil
	case 'h':
		value, ok := new(big.Int).SetString(digits, 16)
		if !ok {
			return bitvec.Vector{}, false, fmt.Errorf("malformed hex digits in %q", text)
		}
		//
		return bitvec.FromBigInt(value, width), signed, nil
	default:
		return bitvec.Vector{}, false, fmt.Errorf("unknown constant base %q", base)
	}
}

func parseBinary(digits string, width int, signed bool) (bitvec.Vector, bool, error) {
	vec := bitvec.New(width)
	runes := []rune(digits)
	//
	for i := 0; i < width && i < len(runes); i++ {
		bit, ok := bitvec.BitFromRune(runes[len(runes)-1-i])
		if !ok {
			return bitvec.Vector{}, false, fmt.Errorf("malformed binary digit %q", runes[len(runes)-1-i])
		}
		//
		vec.Set(i, bit)
	}
	// Replicate the leading digit when it is x or z, per Verilog rules.
	if len(runes) > 0 && len(runes) < width {
		if msb, ok := bitvec.BitFromRune(runes[0]); ok && !msb.IsDefined() {
			for i := len(runes); i < width; i++ {
				vec.Set(i, msb)
			}
		}
	}
	//
	return vec, signed, nil
}
