package workers

import (
	"bytes"
	"strings"
	"testing"

	"nickandperla.net/smartserv/internal/web"
)

func process(t *testing.T, w web.Worker, params web.Params, persistent web.ParamMap) string {
	t.Helper()
	var buf bytes.Buffer
	ctx := web.NewContext(&buf, params, persistent, nil)
	if err := w.Process(ctx); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return buf.String()
}

func body(response string) string {
	_, b, _ := strings.Cut(response, "\r\n\r\n")
	return b
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"EchoParams", "HelloWorker", "CircleWorker", "VisitsWorker", "GuessWorker"} {
		if New(name) == nil {
			t.Errorf("expected %s to be registered", name)
		}
	}
	if New("NoSuchWorker") != nil {
		t.Error("unknown identifier must resolve to nil")
	}
}

func TestEchoParams(t *testing.T) {
	a, b := "1", "two"
	out := process(t, &EchoParams{}, web.Params{"a": &a, "b": &b}, nil)

	if !strings.Contains(out, "Content-Type: text/html") {
		t.Errorf("expected html content type: %q", out)
	}
	for _, row := range []string{"<td>a</td><td>1</td>", "<td>b</td><td>two</td>"} {
		if !strings.Contains(out, row) {
			t.Errorf("missing row %q in %q", row, out)
		}
	}
}

func TestHelloWorker(t *testing.T) {
	out := body(process(t, &HelloWorker{}, nil, nil))
	if !strings.Contains(out, "You did not send me your name!") {
		t.Errorf("expected nameless greeting, got %q", out)
	}

	name := "Ana"
	out = body(process(t, &HelloWorker{}, web.Params{"name": &name}, nil))
	if !strings.Contains(out, "Your name has 3 letters.") {
		t.Errorf("expected letter count, got %q", out)
	}
}

func TestCircleWorkerProducesPNG(t *testing.T) {
	out := process(t, &CircleWorker{}, nil, nil)
	if !strings.Contains(out, "Content-Type: image/png\r\n") {
		t.Errorf("expected png content type without charset: %q", out[:100])
	}
	b := body(out)
	if !strings.HasPrefix(b, "\x89PNG\r\n\x1a\n") {
		t.Error("expected PNG magic at start of body")
	}
}

func TestVisitsWorkerCounts(t *testing.T) {
	w := &VisitsWorker{}
	process(t, w, nil, nil)
	out := body(process(t, w, nil, nil))
	if !strings.Contains(out, "Site visited 2 times globally.") {
		t.Errorf("expected second visit, got %q", out)
	}
}

func TestGuessWorkerRound(t *testing.T) {
	persistent := web.MapParams{}

	out := body(process(t, &GuessWorker{}, nil, persistent))
	if !strings.Contains(out, "7 attempts left") {
		t.Errorf("expected fresh round, got %q", out)
	}
	number, ok := persistent["guess.number"]
	if !ok {
		t.Fatal("expected secret number in persistent parameters")
	}

	// A correct guess ends the round and clears the state.
	out = body(process(t, &GuessWorker{}, web.Params{"guess": &number}, persistent))
	if !strings.Contains(out, "Well done, you guessed it!") {
		t.Errorf("expected win message, got %q", out)
	}
	if _, ok := persistent["guess.number"]; ok {
		t.Error("expected state cleared after a win")
	}
}

func TestGuessWorkerRejectsNonNumber(t *testing.T) {
	persistent := web.MapParams{}
	junk := "abc"
	out := body(process(t, &GuessWorker{}, web.Params{"guess": &junk}, persistent))
	if !strings.Contains(out, "Please enter a whole number.") {
		t.Errorf("expected rejection, got %q", out)
	}
}
