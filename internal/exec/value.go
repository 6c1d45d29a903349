// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package exec evaluates parsed Smart Script documents: it provides the
// dynamically typed numeric value, the named multistack and the
// tree-walking engine.
package exec

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"nickandperla.net/smartserv/internal/node"
)

var (
	// ErrBadType reports an operand that is not an int, a float64 or a string.
	ErrBadType = errors.New("operand is not an integer, a double or a string")
	// ErrBadNumber reports a string operand that denotes no number.
	ErrBadNumber = errors.New("string is not a number")
	// ErrDivByZero reports a divisor with magnitude below 1e-20.
	ErrDivByZero = errors.New("division by zero")
	// ErrEmptyStack reports a pop or peek from an empty stack.
	ErrEmptyStack = errors.New("empty stack")
)

// Divisors whose magnitude is below this limit fail the division.
const zeroLimit = 1e-20

// Value wraps a scalar that is an int, a float64 or a string denoting one
// of those. A nil wrapped value reads as integer zero. Arithmetic follows
// the any-double-wins promotion rule: if either operand resolves to a
// double the result is a double, otherwise an integer.
type Value struct {
	v any
}

// NewValue wraps v, which must be nil, an int, a float64 or a string.
// Strings are parsed lazily, on first arithmetic use.
func NewValue(v any) *Value {
	return &Value{v: v}
}

// Raw returns the wrapped scalar.
func (v *Value) Raw() any { return v.v }

// Increment adds other to the wrapped value.
func (v *Value) Increment(other any) error {
	return v.apply(other, func(a, b float64) float64 { return a + b })
}

// Decrement subtracts other from the wrapped value.
func (v *Value) Decrement(other any) error {
	return v.apply(other, func(a, b float64) float64 { return a - b })
}

// Multiply multiplies the wrapped value by other.
func (v *Value) Multiply(other any) error {
	return v.apply(other, func(a, b float64) float64 { return a * b })
}

// Divide divides the wrapped value by other. Integer division truncates.
func (v *Value) Divide(other any) error {
	a, aFloat, err := toNumber(v.v)
	if err != nil {
		return err
	}
	b, bFloat, err := toNumber(other)
	if err != nil {
		return err
	}
	if math.Abs(b) < zeroLimit {
		return fmt.Errorf("%w: %v / %v", ErrDivByZero, v.v, other)
	}
	v.store(a/b, aFloat || bFloat)
	return nil
}

// Compare numerically compares the wrapped value with other and returns
// -1, 0 or 1.
func (v *Value) Compare(other any) (int, error) {
	a, _, err := toNumber(v.v)
	if err != nil {
		return 0, err
	}
	b, _, err := toNumber(other)
	if err != nil {
		return 0, err
	}
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	}
	return 0, nil
}

// String returns the wrapped value in its output form.
func (v *Value) String() string {
	return formatValue(v.v)
}

func (v *Value) apply(other any, op func(a, b float64) float64) error {
	a, aFloat, err := toNumber(v.v)
	if err != nil {
		return err
	}
	b, bFloat, err := toNumber(other)
	if err != nil {
		return err
	}
	v.store(op(a, b), aFloat || bFloat)
	return nil
}

func (v *Value) store(result float64, asFloat bool) {
	if asFloat {
		v.v = result
	} else {
		v.v = int(result)
	}
}

// toNumber coerces a scalar to a float64 and reports whether it resolved
// to a double.
func toNumber(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return float64(x), false, nil
	case float64:
		return x, true, nil
	case string:
		if i, err := strconv.Atoi(x); err == nil {
			return float64(i), false, nil
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true, nil
		}
		return 0, false, fmt.Errorf("%w: %q", ErrBadNumber, x)
	}
	return 0, false, fmt.Errorf("%w: %v (%T)", ErrBadType, v, v)
}

// formatValue renders a working-stack scalar for output. Doubles keep a
// decimal point so they still read back as doubles.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return node.FormatDouble(x)
	default:
		return fmt.Sprint(x)
	}
}
