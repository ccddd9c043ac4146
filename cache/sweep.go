package cache

import (
	"context"
	"sync"
	"time"
)

// StartSweeper launches a goroutine that calls PurgeExpired every interval
// until ctx is done or the returned stop function is called. Expiry stays
// lazy unless a sweeper is started; it only bounds memory held by keys that
// are written once and never read again.
//
// stop blocks until the goroutine has exited and is safe to call more than
// once.
func (c *Expiring[K, V]) StartSweeper(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.PurgeExpired()
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
