package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestBaseLoggerPrefixes(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(&buf, "[Sync]")
	child := root.WithPrefix("[Fetcher]")

	root.Log("started %d", 1)
	child.Log("page %d done\n", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "[Sync] started 1" {
		t.Fatalf("unexpected root line %q", lines[0])
	}
	if lines[1] != "[Sync] [Fetcher] page 2 done" {
		t.Fatalf("unexpected child line %q", lines[1])
	}
}

func TestSetPrefixDoesNotAffectChildren(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(&buf, "[A]")
	child := root.WithPrefix("[B]")
	root.SetPrefix("[C]")

	child.Log("x")
	if got := strings.TrimSpace(buf.String()); got != "[A] [B] x" {
		t.Fatalf("unexpected line %q", got)
	}
}
