package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestProdLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("prod", &buf).Info("withdrawal submitted", "amount_cents", 3000)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "provider-payouts" {
		t.Fatalf("missing service attr: %v", rec)
	}
}

func TestDevLoggerIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("dev", &buf).Debug("sweep tick")
	if !strings.Contains(buf.String(), "sweep tick") {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}
