package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/insightsgpt/regfetch/pkg/client"
)

// scheduler abstracts how a fetch suspends for a backoff delay. The two
// implementations are the only difference between the sync and async
// execution models; the pagination algorithm is shared.
type scheduler interface {
	Mode() Mode
	Wait(ctx context.Context, d time.Duration) error
}

// blockingScheduler sleeps on the calling goroutine's stack. Fetches using
// it must not share a controller concurrently.
type blockingScheduler struct{}

func (blockingScheduler) Mode() Mode { return ModeSync }

func (blockingScheduler) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", client.ErrContextCancelled, err)
	}
	time.Sleep(d)
	return nil
}

// cooperativeScheduler yields during the delay so other fetches sharing the
// connection pool can make progress, and aborts the wait on cancellation.
type cooperativeScheduler struct{}

func (cooperativeScheduler) Mode() Mode { return ModeAsync }

func (cooperativeScheduler) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", client.ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// schedulerFor maps a spec's mode to its scheduler. Unknown modes fall back
// to sync.
func schedulerFor(mode Mode) scheduler {
	if mode == ModeAsync {
		return cooperativeScheduler{}
	}
	return blockingScheduler{}
}
