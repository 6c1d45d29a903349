// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package exec

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// The decimal point must stay '.' regardless of the host locale, so
// formatting is pinned to en-US.
var enUS = message.NewPrinter(language.AmericanEnglish)

// decimalFormat renders x according to a DecimalFormat-style pattern made
// of '#' and '0' digits around an optional '.'.
func decimalFormat(pattern string, x float64) (string, error) {
	intPart, fracPart, hasDot := strings.Cut(pattern, ".")

	minInt, minFrac, maxFrac := 0, 0, 0
	for _, r := range intPart {
		switch r {
		case '0':
			minInt++
		case '#', ',':
		default:
			return "", fmt.Errorf("bad decimal pattern %q", pattern)
		}
	}
	if hasDot {
		for _, r := range fracPart {
			switch r {
			case '0':
				minFrac++
				maxFrac++
			case '#':
				maxFrac++
			default:
				return "", fmt.Errorf("bad decimal pattern %q", pattern)
			}
		}
	}

	opts := []number.Option{
		number.NoSeparator(),
		number.MinFractionDigits(minFrac),
		number.MaxFractionDigits(maxFrac),
	}
	if minInt > 0 {
		opts = append(opts, number.MinIntegerDigits(minInt))
	}
	return enUS.Sprint(number.Decimal(x, opts...)), nil
}
