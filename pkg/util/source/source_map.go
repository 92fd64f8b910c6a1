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
package source

import (
	"fmt"
)

// Map maps terms from an AST to slices of their originating string.  This is
// important for error handling when we wish to highlight exactly where, in
// the original source file, a given error has arisen.
type Map[T comparable] struct {
	// Maps a given AST object to a span in the original string.
	mapping map[T]Span
	// Enclosing source file
	srcfile File
}

// NewMap constructs an initially empty source map for a given file.
func NewMap[T comparable](srcfile File) *Map[T] {
	mapping := make(map[T]Span)
	return &Map[T]{mapping, srcfile}
}

// Source returns the underlying source file on which this map operates.
func (p *Map[T]) Source() File {
	return p.srcfile
}

// Put registers a new AST item with a given span.  Note, if the item exists
// already, then it will panic.
func (p *Map[T]) Put(item T, span Span) {
	if _, ok := p.mapping[item]; ok {
		panic(fmt.Sprintf("source map key already exists: %v", any(item)))
	}
	// Assign it
	p.mapping[item] = span
}

// Has checks whether a given item is contained within this source map.
func (p *Map[T]) Has(item T) bool {
	_, ok := p.mapping[item]
	return ok
}

// Get determines the span associated with a given AST item.  Note, if the
// item is not registered with this source map, then it will panic.
func (p *Map[T]) Get(item T) Span {
	if s, ok := p.mapping[item]; ok {
		return s
	}

	panic(fmt.Sprintf("invalid source map key: %v", any(item)))
}

// SyntaxError constructs a syntax error for a given item contained within the
// source file managed by this map.
func (p *Map[T]) SyntaxError(item T, msg string) *SyntaxError {
	span := p.Get(item)
	return p.srcfile.SyntaxError(span, msg)
}
