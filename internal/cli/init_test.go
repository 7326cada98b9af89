package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"caisse/internal/log"
)

func TestGracefulShutdownRunsCleanup(t *testing.T) {
	// Registering a handler first keeps the test process alive even if
	// the signal lands before the helper's own Notify is in place.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGTERM)
	defer signal.Stop(guard)

	logger := log.New(log.DefaultConfig())

	var cleanupCtx context.Context
	cleanupRan := make(chan struct{})
	ctx, done := GracefulShutdown(logger, time.Second, func(shutdownCtx context.Context) {
		cleanupCtx = shutdownCtx
		close(cleanupRan)
	})

	// Resend until the helper picks it up; its Notify registration races
	// with the first send.
	deadline := time.After(5 * time.Second)
	for {
		if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
			t.Fatalf("send SIGTERM: %v", err)
		}
		select {
		case <-cleanupRan:
		case <-deadline:
			t.Fatal("cleanup did not run after SIGTERM")
		case <-time.After(20 * time.Millisecond):
			continue
		}
		break
	}

	waited := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForShutdown did not return after cleanup")
	}

	if cleanupCtx == nil {
		t.Fatal("cleanup ran without a context")
	}
	if _, ok := cleanupCtx.Deadline(); !ok {
		t.Error("cleanup context carries no deadline")
	}
}
