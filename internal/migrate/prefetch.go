package migrate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// hashFunc computes and caches the content hash of a path.
type hashFunc func(ctx context.Context, path string) (string, error)

// prefetcher hashes files ahead of the decision loop. It never runs more than
// window files ahead and never touches a file the loop has already reached,
// so it cannot race a move.
type prefetcher struct {
	cursor atomic.Int64
	tokens chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startPrefetch(ctx context.Context, files []string, workers int, hash hashFunc) *prefetcher {
	window := workers * 4
	ctx, cancel := context.WithCancel(ctx)
	p := &prefetcher{
		tokens: make(chan struct{}, window),
		cancel: cancel,
	}
	p.cursor.Store(-1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(workers)
		for i, path := range files {
			select {
			case <-gctx.Done():
				_ = group.Wait()
				return
			case p.tokens <- struct{}{}:
			}
			group.Go(func() error {
				if int64(i) <= p.cursor.Load() {
					return nil
				}
				// Failures surface again when the decision loop hashes the file.
				_, _ = hash(gctx, path)
				return nil
			})
		}
		_ = group.Wait()
	}()
	return p
}

// advance tells the prefetcher the loop has reached position i.
func (p *prefetcher) advance(i int) {
	if p == nil {
		return
	}
	p.cursor.Store(int64(i))
	select {
	case <-p.tokens:
	default:
	}
}

func (p *prefetcher) stop() {
	if p == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
}
