package psd

import (
	"runtime"
	"sync"
)

// runTasks runs fn(0..n-1) across a bounded worker pool and waits for
// all of them. Workers stop picking up new tasks once one has failed;
// the first error wins. Channel tasks share no mutable state, so this
// is the whole concurrency story.
func runTasks(n, workers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	var (
		mu       sync.Mutex
		next     int
		firstErr error
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				if firstErr != nil || next >= n {
					mu.Unlock()
					return
				}
				i := next
				next++
				mu.Unlock()

				if err := fn(i); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// progress is the one shared counter of the concurrent path: bumped
// once per completed channel task under its own lock.
type progress struct {
	mu    sync.Mutex
	done  int
	total int
	fn    func(done, total int)
}

func newProgress(total int, fn func(done, total int)) *progress {
	if fn == nil {
		return nil
	}
	return &progress{total: total, fn: fn}
}

func (p *progress) tick() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.done++
	done := p.done
	p.mu.Unlock()
	p.fn(done, p.total)
}
