//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "user-9")
	With(ctx, &base).Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["trace_id"] != "trace-1" || entry["user_id"] != "user-9" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if TraceIDFrom(ctx) != "trace-1" {
		t.Errorf("TraceIDFrom = %q", TraceIDFrom(ctx))
	}
}

func TestRedact(t *testing.T) {
	if Redact("secret", false) != "***" {
		t.Error("short values are fully masked")
	}
	if got := Redact("author@example.com", false); got != "auth...om" {
		t.Errorf("unexpected redaction %q", got)
	}
	if Redact("author@example.com", true) != "author@example.com" {
		t.Error("dev mode keeps values")
	}
}
