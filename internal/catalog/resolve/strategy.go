package resolve

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gocatalog_sync/internal/catalog/client"
	"gocatalog_sync/internal/catalog/models"
)

type resolveFunc func(ctx context.Context, g Group) models.Collection

// Strategy decides how collection queries are scheduled. Implementations must return
// one collection per group, in group order.
type Strategy interface {
	Run(ctx context.Context, groups []Group, resolve resolveFunc) ([]models.Collection, error)
}

// Sequential resolves one collection at a time with a fixed pause between queries.
type Sequential struct {
	Interval time.Duration
	Sleep    client.SleepFunc
}

func (s Sequential) Run(ctx context.Context, groups []Group, resolve resolveFunc) ([]models.Collection, error) {
	sleep := s.Sleep
	if sleep == nil {
		sleep = client.Sleep
	}
	collections := make([]models.Collection, 0, len(groups))
	for i, g := range groups {
		if i > 0 {
			if err := sleep(ctx, s.Interval); err != nil {
				return nil, err
			}
		}
		collections = append(collections, resolve(ctx, g))
	}
	return collections, nil
}

// Parallel resolves collections with a fixed number of workers that share one limiter.
type Parallel struct {
	Workers int
	Limiter *rate.Limiter
}

func (p Parallel) Run(ctx context.Context, groups []Group, resolve resolveFunc) ([]models.Collection, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	collections := make([]models.Collection, len(groups))
	tasks := make(chan int)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				if p.Limiter != nil {
					if err := p.Limiter.Wait(ctx); err != nil {
						select {
						case errCh <- err:
						default:
						}
						continue
					}
				}
				collections[i] = resolve(ctx, groups[i])
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i := range groups {
			select {
			case <-ctx.Done():
				return
			case tasks <- i:
			}
		}
	}()

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collections, nil
}
