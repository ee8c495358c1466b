package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestStartSpanPropagatesTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	ctx, parent := StartSpan(ctx, "parent")
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		t.Fatal("expected trace id on context")
	}
	parentID := SpanIDFromContext(ctx)

	childCtx, child := StartSpan(ctx, "child", slog.String("peer", "user-2"))
	if TraceIDFromContext(childCtx) != traceID {
		t.Fatal("expected child to share the trace id")
	}
	child.End()
	parent.End()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines got %d", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["parent_span_id"] != parentID || entry["peer"] != "user-2" {
		t.Fatalf("unexpected child entry: %v", entry)
	}
}

func TestSpanFailLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	_, span := StartSpan(ctx, "op")
	if err := span.Fail(errors.New("boom")); err == nil {
		t.Fatal("expected Fail to return its argument")
	}
	span.End()

	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected failed span warning, got %s", buf.String())
	}
}

func TestWithUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")
	if UserIDFromContext(ctx) != "user-1" {
		t.Fatal("expected user id on context")
	}
	if UserIDFromContext(context.Background()) != "" {
		t.Fatal("expected empty user id")
	}
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatal("unexpected level parsing")
	}
}
