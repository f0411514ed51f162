package structlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_WritesOneJSONLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	logger.Info("container started", map[string]interface{}{"container": "web"})
	logger.Error("container failed", map[string]interface{}{"container": "db", "reason": "boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	for _, field := range []string{"@timestamp", "@severity", "@message"} {
		if _, ok := first[field]; !ok {
			t.Fatalf("expected field %q in %v", field, first)
		}
	}
	if first["@severity"] != "info" {
		t.Fatalf("expected severity info, got %v", first["@severity"])
	}
	if first["container"] != "web" {
		t.Fatalf("expected extra field container=web, got %v", first["container"])
	}
}

func TestLogger_ConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			logger.Info("concurrent", map[string]interface{}{"i": i})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line is not valid JSON (interleaved write?): %q", line)
		}
	}
}
