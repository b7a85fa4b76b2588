package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/forgeflow/forgeflow/internal/proc"
)

// Verifies that Manager.KillAll terminates tracked subprocesses during
// the shutdown path run is deferred on.
func TestManagerKillAllOnShutdown(t *testing.T) {
	mgr := proc.NewManager()

	cmd := proc.Command(context.Background(), "sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start subprocess: %v", err)
	}
	mgr.Track(cmd)

	if count := mgr.Count(); count != 1 {
		t.Errorf("tracked processes = %d, want 1", count)
	}

	if err := mgr.KillAll(); err != nil {
		t.Errorf("KillAll failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected killed process to report a non-zero exit")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("process did not terminate after KillAll")
	}

	mgr.Untrack(cmd)
	if count := mgr.Count(); count != 0 {
		t.Errorf("tracked processes after untrack = %d, want 0", count)
	}
}

// Verifies the signal context main builds cancels on delivery.
func TestSignalContextCancellation(t *testing.T) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("failed to send SIGUSR1: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("context did not cancel after SIGUSR1")
	}

	if err := ctx.Err(); err != context.Canceled {
		t.Errorf("ctx.Err() = %v, want context.Canceled", err)
	}
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"requirement", "workspace", "config", "provider", "editor", "no-persist"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}

	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when --requirement is omitted")
	}
}
