package cli

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--frobnicate"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for unknown flag")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "unknown flag") || !strings.Contains(msg, "--frobnicate") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if !strings.Contains(msg, "Usage:") {
		t.Fatalf("help text missing from usage error: %v", err)
	}
}
