// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package node

import (
	"strconv"
	"strings"
)

// Kind identifies the variant of an Element.
type Kind int

const (
	// Variable references a named loop variable.
	Variable Kind = iota
	// String is a literal with its escapes already expanded.
	String
	// Int is an integer constant.
	Int
	// Double is a floating point constant.
	Double
	// Function names a built-in function, without the leading '@'.
	Function
	// Operator is one of + - * / ^.
	Operator
)

// Element is one piece of a tag body: a variable reference, a literal, a
// function reference or an operator symbol.
type Element struct {
	Kind  Kind
	Text  string // variable/function name, operator symbol or string value
	Int   int
	Float float64
}

// Value returns the underlying scalar of a literal element, the name of a
// variable or function, or the operator symbol.
func (e Element) Value() any {
	switch e.Kind {
	case Int:
		return e.Int
	case Double:
		return e.Float
	default:
		return e.Text
	}
}

// Source returns the element's source form, re-quoting and re-escaping
// string literals.
func (e Element) Source() string {
	switch e.Kind {
	case Variable, Operator:
		return e.Text
	case Function:
		return "@" + e.Text
	case Int:
		return strconv.Itoa(e.Int)
	case Double:
		return FormatDouble(e.Float)
	case String:
		return quote(e.Text)
	}
	return ""
}

// FormatDouble renders a double so that it still reads back as one: an
// integral value keeps a trailing ".0".
func FormatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

var quoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}
