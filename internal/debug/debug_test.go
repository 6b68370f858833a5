package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogfDisabled(t *testing.T) {
	var buf bytes.Buffer
	restore := Redirect(&buf, false)
	defer restore()

	Logf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
	if Enabled() {
		t.Error("Enabled() = true, want false")
	}
}

func TestLogfEnabled(t *testing.T) {
	var buf bytes.Buffer
	restore := Redirect(&buf, true)
	defer restore()

	Logf("loaded %s in %dms", "leaf", 3)
	got := buf.String()
	if !strings.HasPrefix(got, "[DEBUG ") || !strings.HasSuffix(got, "] loaded leaf in 3ms\n") {
		t.Errorf("unexpected line %q", got)
	}
}
