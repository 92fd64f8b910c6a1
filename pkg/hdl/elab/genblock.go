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
	"strings"

	"github.com/consensys/go-elab/pkg/hdl/ast"
)

// expandGenblock annotates the names of all wires and other named objects in
// a generate block (or named block) with a given prefix, substituting uses
// of the loop variable by its current value.  The name map carries renames
// into nested uses, with copy-on-write backup across nested declaring
// blocks.
func (p *Elaborator) expandGenblock(n *ast.Node, indexVar string, prefix string, nameMap map[string]string) {
	if indexVar != "" && n.Kind == ast.KindIdentifier && n.Name == indexVar {
		if decl := p.lookup(indexVar); decl != nil {
			n.ReplaceWith(decl.Children[0])
		}
		//
		return
	}
	//
	if n.Kind == ast.KindIdentifier || n.Kind == ast.KindFCall || n.Kind == ast.KindTCall {
		if renamed, ok := nameMap[n.Name]; ok {
			n.Name = renamed
		}
	}
	//
	var backupNameMap map[string]string
	//
	for _, child := range n.Children {
		switch child.Kind {
		case ast.KindWire, ast.KindMemory, ast.KindParameter, ast.KindLocalParam,
			ast.KindFunction, ast.KindTask, ast.KindCell:
			if backupNameMap == nil {
				backupNameMap = make(map[string]string, len(nameMap))
				for k, v := range nameMap {
					backupNameMap[k] = v
				}
			}
			//
			newName := prefixName(child.Name, prefix)
			nameMap[child.Name] = newName
			//
			if child.Kind == ast.KindFunction {
				// The function's result wire shares the function's name and
				// must be renamed throughout its body.
				renameInside(child, child.Name, newName)
			} else {
				child.Name = newName
			}
			//
			p.scope[newName] = child
		}
	}
	//
	for _, child := range n.Children {
		switch child.Kind {
		case ast.KindFunction, ast.KindTask, ast.KindPrefix:
			// opaque
		default:
			p.expandGenblock(child, indexVar, prefix, nameMap)
		}
	}
	//
	if backupNameMap != nil {
		clear(nameMap)
		//
		for k, v := range backupNameMap {
			nameMap[k] = v
		}
	}
}

// prefixName inserts a generate prefix into a declared name, after any
// existing dotted prefix.
func prefixName(name string, prefix string) string {
	pos := strings.LastIndexByte(name, '.')
	//
	if pos < 0 {
		return prefix + name
	}
	//
	return name[:pos+1] + prefix + name[pos+1:]
}

// renameInside renames every node bearing a given name within a subtree.
// This is used for function result wires, whose name is the function's own.
func renameInside(n *ast.Node, from string, to string) {
	for _, child := range n.Children {
		renameInside(child, from, to)
	}
	//
	if n.Name == from {
		n.Name = to
	}
}

// replaceIDs renames identifiers according to a set of rules.  This is used
// when instantiating functions and tasks.
func replaceIDs(n *ast.Node, rules map[string]string) {
	if n.Kind == ast.KindIdentifier {
		if renamed, ok := rules[n.Name]; ok {
			n.Name = renamed
		}
	}
	//
	for _, child := range n.Children {
		replaceIDs(child, rules)
	}
}

// hasConstOnlyConstructs checks whether a function body contains constructs
// which force constant evaluation (while and repeat loops), additionally
// reporting whether evaluation is merely recommended (for loops).
func (p *Elaborator) hasConstOnlyConstructs(n *ast.Node, recommend *bool) bool {
	if n.Kind == ast.KindFor {
		*recommend = true
	}
	//
	if n.Kind == ast.KindWhile || n.Kind == ast.KindRepeat {
		return true
	}
	//
	if n.Kind == ast.KindFCall {
		if decl := p.lookup(n.Name); decl != nil {
			if p.hasConstOnlyConstructs(decl, recommend) {
				return true
			}
		}
	}
	//
	for _, child := range n.Children {
		if p.hasConstOnlyConstructs(child, recommend) {
			return true
		}
	}
	//
	return false
}
