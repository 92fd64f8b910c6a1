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

// The lexical scope is a single mutable mapping from identifier to declaring
// node, maintained as a stack of backups through the simplifier's recursion.
// On entering a module the mapping is cleared and repopulated from the
// module's declarations; nested naming contexts (functions, named generate
// blocks, loop variables) save the entries they shadow into a local backup
// and restore them on exit.  The mapping holds weak references: it never
// owns the nodes it points at.

// scopeBackup records the shadowed bindings of a nested naming context.  A
// nil value means the identifier was previously unbound.
type scopeBackup map[string]*ast.Node

// bind installs a declaration in the current scope, recording whatever it
// shadows in the given backup.
func (p *Elaborator) bind(backup scopeBackup, node *ast.Node) {
	if _, ok := backup[node.Name]; !ok {
		backup[node.Name] = p.scope[node.Name]
	}
	//
	p.scope[node.Name] = node
}

// restoreScope undoes the bindings recorded in a backup.
func (p *Elaborator) restoreScope(backup scopeBackup) {
	for name, node := range backup {
		if node == nil {
			delete(p.scope, name)
		} else {
			p.scope[name] = node
		}
	}
}

// lookup returns the innermost declaration of an identifier, or nil.
func (p *Elaborator) lookup(name string) *ast.Node {
	return p.scope[name]
}

// lookupOrScan returns the innermost declaration of an identifier.  When the
// scope has no entry, the enclosing module's declarations are scanned as a
// fallback; this covers declarations hoisted into the module after the
// module's own scope was populated.
func (p *Elaborator) lookupOrScan(name string) *ast.Node {
	if node := p.scope[name]; node != nil {
		return node
	}
	//
	if p.module == nil {
		return nil
	}
	//
	for _, node := range p.module.Children {
		if node.Kind.IsDeclaration() && node.Name == name {
			p.scope[name] = node
			return node
		}
	}
	//
	return nil
}
