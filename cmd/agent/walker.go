package main

import (
	"context"
	"sync"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/publisher"
)

// routeWalker interpolates fixes along a straight line. Current returns the
// next point each time it is asked; Watch ticks the same walk on its own
// clock. Past the final step both keep reporting the destination.
type routeWalker struct {
	from, to publisher.Position
	steps    int
	tick     time.Duration

	mu   sync.Mutex
	step int
}

func newRouteWalker(from, to publisher.Position, steps int, tick time.Duration) *routeWalker {
	if steps < 1 {
		steps = 1
	}
	return &routeWalker{from: from, to: to, steps: steps, tick: tick}
}

func (w *routeWalker) at(step int) publisher.Position {
	if step > w.steps {
		step = w.steps
	}
	frac := float64(step) / float64(w.steps)
	return publisher.Position{
		Latitude:  w.from.Latitude + (w.to.Latitude-w.from.Latitude)*frac,
		Longitude: w.from.Longitude + (w.to.Longitude-w.from.Longitude)*frac,
	}
}

func (w *routeWalker) Current(_ context.Context) (publisher.Position, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pos := w.at(w.step)
	if w.step < w.steps {
		w.step++
	}
	return pos, nil
}

func (w *routeWalker) Watch(ctx context.Context) (<-chan publisher.Position, error) {
	out := make(chan publisher.Position)
	go func() {
		defer close(out)
		ticker := time.NewTicker(w.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pos, _ := w.Current(ctx)
				select {
				case out <- pos:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
