package parser

import (
	"errors"
	"reflect"
	"testing"

	"nickandperla.net/smartserv/internal/lexer"
	"nickandperla.net/smartserv/internal/node"
)

func mustParse(t *testing.T, src string) *node.Document {
	t.Helper()
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return doc
}

func parseError(t *testing.T, src string) {
	t.Helper()
	_, err := Parse(src)
	var parseErr *Error
	if !errors.As(err, &parseErr) {
		t.Errorf("Parse(%q): expected parse error, got %v", src, err)
	}
}

func TestDocumentShape(t *testing.T) {
	doc := mustParse(t, "Intro {$ FOR i 1 10 1 $}body {$= i $}{$END$}outro")

	if len(doc.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(doc.Children))
	}

	text, ok := doc.Children[0].(*node.Text)
	if !ok || text.Text != "Intro " {
		t.Errorf("child 0: expected text node 'Intro ', got %#v", doc.Children[0])
	}

	loop, ok := doc.Children[1].(*node.ForLoop)
	if !ok {
		t.Fatalf("child 1: expected for loop, got %#v", doc.Children[1])
	}
	if loop.Variable.Text != "i" {
		t.Errorf("expected variable i, got %q", loop.Variable.Text)
	}
	if loop.Start.Kind != node.Int || loop.Start.Int != 1 {
		t.Errorf("unexpected start element: %#v", loop.Start)
	}
	if loop.Step == nil || loop.Step.Int != 1 {
		t.Errorf("unexpected step element: %#v", loop.Step)
	}
	if len(loop.Children) != 2 {
		t.Fatalf("expected 2 loop children, got %d", len(loop.Children))
	}
	echo, ok := loop.Children[1].(*node.Echo)
	if !ok || len(echo.Elements) != 1 || echo.Elements[0].Kind != node.Variable {
		t.Errorf("unexpected echo node: %#v", loop.Children[1])
	}
}

func TestForWithoutStep(t *testing.T) {
	doc := mustParse(t, "{$ FOR i 1 3 $}{$END$}")
	loop := doc.Children[0].(*node.ForLoop)
	if loop.Step != nil {
		t.Errorf("expected nil step, got %#v", loop.Step)
	}
}

func TestForElementKinds(t *testing.T) {
	doc := mustParse(t, `{$ FOR i "1" last -2.5 $}{$END$}`)
	loop := doc.Children[0].(*node.ForLoop)
	if loop.Start.Kind != node.String || loop.Start.Text != "1" {
		t.Errorf("unexpected start: %#v", loop.Start)
	}
	if loop.End.Kind != node.Variable || loop.End.Text != "last" {
		t.Errorf("unexpected end: %#v", loop.End)
	}
	if loop.Step.Kind != node.Double || loop.Step.Float != -2.5 {
		t.Errorf("unexpected step: %#v", loop.Step)
	}
}

func TestEchoElements(t *testing.T) {
	doc := mustParse(t, `{$= "a+b=" a 4 2.5 @paramGet + - * / ^ $}`)
	echo := doc.Children[0].(*node.Echo)

	want := []node.Element{
		{Kind: node.String, Text: "a+b="},
		{Kind: node.Variable, Text: "a"},
		{Kind: node.Int, Int: 4},
		{Kind: node.Double, Float: 2.5},
		{Kind: node.Function, Text: "paramGet"},
		{Kind: node.Operator, Text: "+"},
		{Kind: node.Operator, Text: "-"},
		{Kind: node.Operator, Text: "*"},
		{Kind: node.Operator, Text: "/"},
		{Kind: node.Operator, Text: "^"},
	}
	if !reflect.DeepEqual(echo.Elements, want) {
		t.Errorf("unexpected elements:\n got %#v\nwant %#v", echo.Elements, want)
	}
}

func TestStringEscapes(t *testing.T) {
	doc := mustParse(t, `{$= "line\nbreak \"quoted\" tab\t\\" $}`)
	echo := doc.Children[0].(*node.Echo)
	want := "line\nbreak \"quoted\" tab\t\\"
	if echo.Elements[0].Text != want {
		t.Errorf("expected %q, got %q", want, echo.Elements[0].Text)
	}
}

func TestSignedNumbers(t *testing.T) {
	doc := mustParse(t, `{$= +5 -7 $}`)
	echo := doc.Children[0].(*node.Echo)
	if echo.Elements[0].Kind != node.Int || echo.Elements[0].Int != 5 {
		t.Errorf("unexpected element: %#v", echo.Elements[0])
	}
	if echo.Elements[1].Kind != node.Int || echo.Elements[1].Int != -7 {
		t.Errorf("unexpected element: %#v", echo.Elements[1])
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"end without for":       "text {$END$}",
		"unclosed for":          "{$ FOR i 1 10 $}body",
		"too few for elements":  "{$ FOR i 1 $}{$END$}",
		"too many for elements": "{$ FOR i 1 2 3 4 $}{$END$}",
		"bad variable name":     "{$ FOR 1x 1 10 $}{$END$}",
		"function in for":       "{$ FOR i @sin 10 $}{$END$}",
		"operator in for":       "{$ FOR i * 10 $}{$END$}",
		"bad echo element":      "{$= i ## $}",
		"bad string escape":     `{$= "a\x" $}`,
		"unterminated string":   `{$= "abc $}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			parseError(t, src)
		})
	}
}

func TestLexerErrorWrapped(t *testing.T) {
	_, err := Parse(`bad \escape`)
	var parseErr *Error
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected parse error, got %v", err)
	}
	var lexErr *lexer.Error
	if !errors.As(err, &lexErr) {
		t.Errorf("expected wrapped lexer error, got %v", err)
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	sources := []string{
		"plain text only",
		"a\\\\b \\{$not a tag$}",
		"{$ FOR i 1 10 1 $}i={$= i $}\n{$END$}",
		`{$ FOR year 2000 last $}{$= year "y\n" @decfmt $}{$END$}`,
		`{$= 3 2 / "x" @dup + - $}`,
		"{$FOR i 0 10 2 $}{$FOR j i 10 $}{$= j $}{$END$}{$END$}",
	}

	for _, src := range sources {
		first := mustParse(t, src)
		printed := node.Reconstruct(first)
		second, err := Parse(printed)
		if err != nil {
			t.Errorf("reparse of %q failed: %v", printed, err)
			continue
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("round trip changed tree for %q:\nprinted %q\n got %#v\nwant %#v",
				src, printed, second, first)
		}
	}
}
