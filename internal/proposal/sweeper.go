package proposal

import (
	"context"
	"fmt"
	"os"
	"time"
)

// sweepInterval is how often the background sweeper checks for expired
// proposals.
const sweepInterval = 5 * time.Minute

// RunSweeper periodically removes expired proposals until ctx is cancelled.
// A non-positive interval uses the default. The sweep is best-effort; lazy
// sweeps before lookups remain valid on top of it.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = sweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepExpired(0); n > 0 {
				fmt.Fprintf(os.Stderr, "proposal sweeper: expired %d proposal(s)\n", n)
			}
		}
	}
}
