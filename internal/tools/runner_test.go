package tools

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, ok := Resolve("sh"); !ok {
		t.Skip("sh not on PATH")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)
	stdout, stderr, code, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "printf out; printf err >&2")
	if err != nil || code != 0 {
		t.Fatalf("run: code=%d err=%v", code, err)
	}
	if string(stdout) != "out" || string(stderr) != "err" {
		t.Fatalf("unexpected output %q / %q", stdout, stderr)
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	requireShell(t)
	_, _, code, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "exit 3")
	if err == nil || code != 3 {
		t.Fatalf("expected exit 3, got code=%d err=%v", code, err)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, _, code, err := ExecRunner{}.Run(context.Background(), "eftview-no-such-binary")
	if err == nil || code != ExitNotFound {
		t.Fatalf("expected exit %d, got code=%d err=%v", ExitNotFound, code, err)
	}
}

func TestExecRunnerContextDeadline(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, _, err := ExecRunner{}.Run(ctx, "sh", "-c", "sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
