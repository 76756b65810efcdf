package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/insightsgpt/regfetch/pkg/client"
)

func TestSchedulerFor(t *testing.T) {
	if got := schedulerFor(ModeSync).Mode(); got != ModeSync {
		t.Errorf("schedulerFor(sync).Mode() = %q", got)
	}
	if got := schedulerFor(ModeAsync).Mode(); got != ModeAsync {
		t.Errorf("schedulerFor(async).Mode() = %q", got)
	}
	if got := schedulerFor("").Mode(); got != ModeSync {
		t.Errorf("schedulerFor(\"\").Mode() = %q, want sync default", got)
	}
}

func TestCooperativeScheduler_WaitCompletes(t *testing.T) {
	sched := cooperativeScheduler{}
	start := time.Now()
	if err := sched.Wait(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Wait returned after %v, want >= 10ms", elapsed)
	}
}

func TestCooperativeScheduler_WaitAbortsOnCancel(t *testing.T) {
	sched := cooperativeScheduler{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sched.Wait(ctx, time.Minute)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, client.ErrContextCancelled) {
			t.Errorf("Wait error = %v, want ErrContextCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not abort on cancellation")
	}
}

func TestBlockingScheduler_ChecksContextBeforeSleep(t *testing.T) {
	sched := blockingScheduler{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sched.Wait(ctx, time.Minute)
	if !errors.Is(err, client.ErrContextCancelled) {
		t.Errorf("Wait error = %v, want ErrContextCancelled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait slept despite cancelled context")
	}
}
