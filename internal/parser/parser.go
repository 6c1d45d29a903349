// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package parser builds Smart Script document trees from source text.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nickandperla.net/smartserv/internal/lexer"
	"nickandperla.net/smartserv/internal/node"
	"nickandperla.net/smartserv/internal/token"
)

// Error is a parse failure. Lexical failures are wrapped into it.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func errf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Variable and function names start with a letter followed by
// alphanumerics or underscores.
var varName = regexp.MustCompile(`^[A-Za-z][0-9A-Za-z_]*$`)

// Parse tokenizes and parses a complete document. Every FOR tag must be
// matched by an END tag.
func Parse(text string) (*node.Document, error) {
	lex := lexer.New(text)
	doc := &node.Document{}
	stack := []node.Parent{doc}

	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, &Error{Msg: "lexing document", Err: err}
		}

		top := stack[len(stack)-1]

		switch tok.Type {
		case token.TEXT:
			if tok.Body != "" {
				top.Append(&node.Text{Text: tok.Body})
			}

		case token.FOR:
			n, err := forNode(tok.Body)
			if err != nil {
				return nil, err
			}
			top.Append(n)
			stack = append(stack, n)

		case token.ECHO:
			n, err := echoNode(tok.Body)
			if err != nil {
				return nil, err
			}
			top.Append(n)

		case token.END:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return nil, &Error{Msg: "more END tags than FOR tags"}
			}

		case token.EOF:
			if len(stack) > 1 {
				return nil, &Error{Msg: "FOR tag is never closed"}
			}
			return doc, nil
		}
	}
}

// forNode builds a ForLoop from a FOR tag body of 3 or 4 pieces: a
// variable name followed by start, end and an optional step.
func forNode(body string) (*node.ForLoop, error) {
	pieces := lexer.SplitQuoted(body)
	if len(pieces) < 3 || len(pieces) > 4 {
		return nil, errf("FOR tag needs 3 or 4 elements: %s", body)
	}

	if !varName.MatchString(pieces[0]) {
		return nil, errf("invalid variable name: %s", pieces[0])
	}

	n := &node.ForLoop{
		Variable: node.Element{Kind: node.Variable, Text: pieces[0]},
	}

	var err error
	if n.Start, err = forElement(pieces[1]); err != nil {
		return nil, err
	}
	if n.End, err = forElement(pieces[2]); err != nil {
		return nil, err
	}
	if len(pieces) == 4 {
		step, err := forElement(pieces[3])
		if err != nil {
			return nil, err
		}
		n.Step = &step
	}
	return n, nil
}

// echoNode builds an Echo from a tag body. Elements may additionally be
// functions and operators.
func echoNode(body string) (*node.Echo, error) {
	pieces := lexer.SplitQuoted(body)
	n := &node.Echo{Elements: make([]node.Element, 0, len(pieces))}

	for _, piece := range pieces {
		el, err := echoElement(piece)
		if err != nil {
			return nil, err
		}
		n.Elements = append(n.Elements, el)
	}
	return n, nil
}

// forElement parses a piece as a variable, a quoted string or a number —
// the element kinds legal inside a FOR tag.
func forElement(piece string) (node.Element, error) {
	if varName.MatchString(piece) {
		return node.Element{Kind: node.Variable, Text: piece}, nil
	}
	if strings.HasPrefix(piece, string(token.QuoteMark)) {
		s, err := unquote(piece)
		if err != nil {
			return node.Element{}, err
		}
		return node.Element{Kind: node.String, Text: s}, nil
	}
	if el, ok := numberElement(piece); ok {
		return el, nil
	}
	return node.Element{}, errf("invalid element: %s", piece)
}

// echoElement additionally accepts @functions and operator symbols.
func echoElement(piece string) (node.Element, error) {
	if strings.HasPrefix(piece, string(token.FunctionMark)) {
		if !varName.MatchString(piece[1:]) {
			return node.Element{}, errf("invalid function name: %s", piece)
		}
		return node.Element{Kind: node.Function, Text: piece[1:]}, nil
	}
	if len(piece) == 1 && strings.ContainsAny(piece, "+-*/^") {
		return node.Element{Kind: node.Operator, Text: piece}, nil
	}
	return forElement(piece)
}

// numberElement parses an integer first and falls back to a double.
func numberElement(piece string) (node.Element, bool) {
	if i, err := strconv.Atoi(piece); err == nil {
		return node.Element{Kind: node.Int, Int: i}, true
	}
	if f, err := strconv.ParseFloat(piece, 64); err == nil {
		return node.Element{Kind: node.Double, Float: f}, true
	}
	return node.Element{}, false
}

// unquote validates a quoted string piece and expands its escapes.
func unquote(piece string) (string, error) {
	if len(piece) < 2 || !strings.HasSuffix(piece, string(token.QuoteMark)) {
		return "", errf("unterminated string: %s", piece)
	}

	inner := piece[1 : len(piece)-1]
	var b strings.Builder

	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(inner) {
			return "", errf("escape at end of string: %s", piece)
		}
		i++
		switch inner[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return "", errf("invalid string escape: \\%c", inner[i])
		}
	}
	return b.String(), nil
}
