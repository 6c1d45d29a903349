// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package node defines the document tree built by the parser: a Document
// root over Text, ForLoop and Echo nodes.
package node

import "strings"

// Node is one node of a parsed document tree.
type Node interface {
	// reconstruct appends the node's (approximate) source form to b.
	reconstruct(b *strings.Builder)
}

// Parent is a node that may hold children.
type Parent interface {
	Node
	Append(n Node)
}

// Document is the root of a parsed tree.
type Document struct {
	Children []Node
}

// Text is a leaf carrying a literal string, escapes already expanded.
type Text struct {
	Text string
}

// ForLoop iterates a variable from a start to an end expression. Step is
// nil when the tag carried only three elements.
type ForLoop struct {
	Variable Element // always of kind Variable
	Start    Element
	End      Element
	Step     *Element
	Children []Node
}

// Echo evaluates its elements on a working stack and emits the remnants.
type Echo struct {
	Elements []Element
}

// Append adds a child to the document.
func (d *Document) Append(n Node) { d.Children = append(d.Children, n) }

// Append adds a child to the loop body.
func (f *ForLoop) Append(n Node) { f.Children = append(f.Children, n) }

// Reconstruct reproduces a source form of the tree. Parsing the result
// yields an equal tree.
func Reconstruct(d *Document) string {
	var b strings.Builder
	d.reconstruct(&b)
	return b.String()
}

func (d *Document) reconstruct(b *strings.Builder) {
	for _, c := range d.Children {
		c.reconstruct(b)
	}
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `{`, `\{`)

func (t *Text) reconstruct(b *strings.Builder) {
	b.WriteString(textEscaper.Replace(t.Text))
}

func (f *ForLoop) reconstruct(b *strings.Builder) {
	b.WriteString("{$FOR ")
	b.WriteString(f.Variable.Source())
	b.WriteByte(' ')
	b.WriteString(f.Start.Source())
	b.WriteByte(' ')
	b.WriteString(f.End.Source())
	b.WriteByte(' ')
	if f.Step != nil {
		b.WriteString(f.Step.Source())
		b.WriteByte(' ')
	}
	b.WriteString("$}")
	for _, c := range f.Children {
		c.reconstruct(b)
	}
	b.WriteString("{$END$}")
}

func (e *Echo) reconstruct(b *strings.Builder) {
	b.WriteString("{$= ")
	for _, el := range e.Elements {
		b.WriteString(el.Source())
		b.WriteByte(' ')
	}
	b.WriteString("$}")
}
