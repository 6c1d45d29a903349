package smartscript

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunWithParams(t *testing.T) {
	var buf bytes.Buffer
	err := Run(`{$= "a" "0" @paramGet "b" "0" @paramGet + $}`, &buf,
		WithParams(map[string]string{"a": "4", "b": "2"}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	_, body, _ := strings.Cut(buf.String(), "\r\n\r\n")
	if body != "6" {
		t.Errorf("expected 6, got %q", body)
	}
}

func TestRunMutatesPersistent(t *testing.T) {
	persistent := MapParams{"count": "3"}
	var buf bytes.Buffer
	err := Run(`{$= "count" "0" @pparamGet 1 + "count" @pparamSet $}`, &buf,
		WithPersistent(persistent))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if persistent["count"] != "4" {
		t.Errorf("expected count 4, got %q", persistent["count"])
	}
}

func TestParseError(t *testing.T) {
	if _, err := Parse("{$END$}"); err == nil {
		t.Error("expected parse error for stray END")
	}
}

func TestReconstructIsStable(t *testing.T) {
	src := "{$ FOR i 1 3 1 $}i={$= i $}\n{$ END $}"
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	printed := d.Reconstruct()

	d2, err := Parse(printed)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if d2.Reconstruct() != printed {
		t.Errorf("reconstruction not stable:\nfirst  %q\nsecond %q", printed, d2.Reconstruct())
	}
}
