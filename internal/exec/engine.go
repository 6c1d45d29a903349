// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package exec

import (
	"fmt"
	"math"

	"nickandperla.net/smartserv/internal/node"
	"nickandperla.net/smartserv/internal/web"
)

// Engine executes a parsed document against a response context. Loop
// variables live on a named multistack so that nested loops reusing a
// name shadow, not clobber, the outer binding.
type Engine struct {
	doc   *node.Document
	ctx   *web.Context
	stack *MultiStack
}

// New creates an Engine for one document and one response context.
func New(doc *node.Document, ctx *web.Context) *Engine {
	return &Engine{doc: doc, ctx: ctx, stack: NewMultiStack()}
}

// Execute walks the document tree, writing output through the response
// context. A script-level failure terminates execution; output emitted
// before the failure stands.
func (e *Engine) Execute() error {
	return e.visitChildren(e.doc.Children)
}

func (e *Engine) visitChildren(children []node.Node) error {
	for _, c := range children {
		if err := e.visit(c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) visit(n node.Node) error {
	switch n := n.(type) {
	case *node.Text:
		return e.ctx.WriteString(n.Text)
	case *node.ForLoop:
		return e.forLoop(n)
	case *node.Echo:
		return e.echo(n)
	}
	return fmt.Errorf("unexpected node %T", n)
}

// forLoop pushes the start value under the loop variable, runs the body
// while the top is not past the end value, incrementing by the step after
// each pass, and pops the variable on exit. The variable's stack depth is
// unchanged once the loop completes.
func (e *Engine) forLoop(f *node.ForLoop) error {
	start, err := e.operand(f.Start)
	if err != nil {
		return err
	}
	end, err := e.operand(f.End)
	if err != nil {
		return err
	}
	step := any(1)
	if f.Step != nil {
		if step, err = e.operand(*f.Step); err != nil {
			return err
		}
	}

	name := f.Variable.Text
	e.stack.Push(name, NewValue(start))

	for {
		top, err := e.stack.Peek(name)
		if err != nil {
			return err
		}
		cmp, err := top.Compare(end)
		if err != nil {
			return err
		}
		if cmp > 0 {
			break
		}

		if err := e.visitChildren(f.Children); err != nil {
			return err
		}

		v, err := e.stack.Pop(name)
		if err != nil {
			return err
		}
		if err := v.Increment(step); err != nil {
			return err
		}
		e.stack.Push(name, v)
	}

	_, err = e.stack.Pop(name)
	return err
}

// operand resolves a FOR bound to a raw scalar. Variables are read from
// the multistack; literals carry their value.
func (e *Engine) operand(el node.Element) (any, error) {
	if el.Kind == node.Variable {
		v, err := e.stack.Peek(el.Text)
		if err != nil {
			return nil, err
		}
		return v.Raw(), nil
	}
	return el.Value(), nil
}

// echo evaluates the element sequence on a working stack and writes the
// remnants, bottom to top, through the response context.
func (e *Engine) echo(n *node.Echo) error {
	var work []any

	pop := func() (any, error) {
		if len(work) == 0 {
			return nil, fmt.Errorf("%w: echo working stack", ErrEmptyStack)
		}
		v := work[len(work)-1]
		work = work[:len(work)-1]
		return v, nil
	}
	push := func(v any) { work = append(work, v) }
	peek := func() (any, error) {
		if len(work) == 0 {
			return nil, fmt.Errorf("%w: echo working stack", ErrEmptyStack)
		}
		return work[len(work)-1], nil
	}

	for _, el := range n.Elements {
		switch el.Kind {
		case node.Int, node.Double, node.String:
			push(el.Value())

		case node.Variable:
			v, err := e.stack.Peek(el.Text)
			if err != nil {
				return err
			}
			push(v.Raw())

		case node.Operator:
			if err := applyOperator(el.Text, pop, push); err != nil {
				return err
			}

		case node.Function:
			if err := e.applyFunction(el.Text, pop, push, peek); err != nil {
				return err
			}
		}
	}

	for _, v := range work {
		if err := e.ctx.WriteString(formatValue(v)); err != nil {
			return err
		}
	}
	return nil
}

// applyOperator pops the right-hand operand, then the left, and pushes
// lhs OP rhs. The original implementation computed rhs OP lhs; the
// conventional order is used here.
func applyOperator(symbol string, pop func() (any, error), push func(any)) error {
	rhs, err := pop()
	if err != nil {
		return err
	}
	lhs, err := pop()
	if err != nil {
		return err
	}

	v := NewValue(lhs)
	switch symbol {
	case "+":
		err = v.Increment(rhs)
	case "-":
		err = v.Decrement(rhs)
	case "*":
		err = v.Multiply(rhs)
	case "/":
		err = v.Divide(rhs)
	default:
		return fmt.Errorf("unsupported operator: %s", symbol)
	}
	if err != nil {
		return err
	}
	push(v.Raw())
	return nil
}

// applyFunction runs one built-in function against the working stack.
// The top of the stack is the rightmost argument.
func (e *Engine) applyFunction(name string, pop func() (any, error), push func(any), peek func() (any, error)) error {
	switch name {
	case "sin":
		x, err := popNumber(pop)
		if err != nil {
			return err
		}
		push(math.Sin(x * math.Pi / 180))

	case "decfmt":
		pattern, err := popString(pop)
		if err != nil {
			return err
		}
		x, err := popNumber(pop)
		if err != nil {
			return err
		}
		formatted, err := decimalFormat(pattern, x)
		if err != nil {
			return err
		}
		push(formatted)

	case "dup":
		v, err := peek()
		if err != nil {
			return err
		}
		push(v)

	case "swap":
		a, err := pop()
		if err != nil {
			return err
		}
		b, err := pop()
		if err != nil {
			return err
		}
		push(a)
		push(b)

	case "setMimeType":
		mime, err := popString(pop)
		if err != nil {
			return err
		}
		return e.ctx.SetMimeType(mime)

	case "paramGet":
		return paramGet(pop, push, e.ctx.Parameter)
	case "pparamGet":
		return paramGet(pop, push, e.ctx.PersistentParameter)
	case "tparamGet":
		return paramGet(pop, push, e.ctx.TemporaryParameter)

	case "pparamSet":
		return paramSet(pop, e.ctx.SetPersistentParameter)
	case "tparamSet":
		return paramSet(pop, e.ctx.SetTemporaryParameter)

	case "pparamDel":
		name, err := popString(pop)
		if err != nil {
			return err
		}
		e.ctx.RemovePersistentParameter(name)
	case "tparamDel":
		name, err := popString(pop)
		if err != nil {
			return err
		}
		e.ctx.RemoveTemporaryParameter(name)

	default:
		return fmt.Errorf("unsupported function: @%s", name)
	}
	return nil
}

// paramGet pops a default and a name and pushes the looked-up value, or
// the default when the parameter is absent.
func paramGet(pop func() (any, error), push func(any), lookup func(string) (string, bool)) error {
	def, err := pop()
	if err != nil {
		return err
	}
	name, err := popString(pop)
	if err != nil {
		return err
	}
	if v, ok := lookup(name); ok {
		push(v)
	} else {
		push(def)
	}
	return nil
}

// paramSet pops a name and a value and stores the value's string form.
func paramSet(pop func() (any, error), set func(name, value string)) error {
	name, err := popString(pop)
	if err != nil {
		return err
	}
	value, err := pop()
	if err != nil {
		return err
	}
	set(name, formatValue(value))
	return nil
}

func popString(pop func() (any, error)) (string, error) {
	v, err := pop()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string on the working stack, got %T", v)
	}
	return s, nil
}

func popNumber(pop func() (any, error)) (float64, error) {
	v, err := pop()
	if err != nil {
		return 0, err
	}
	f, _, err := toNumber(v)
	return f, err
}
