package main

import (
	"context"
)

// workerPool bounds the number of DICOMs being decoded and rendered at
// once. It holds no other state.
type workerPool struct {
	sem chan struct{}
}

func newWorkerPool(workers int) *workerPool {
	if workers < 1 {
		workers = 1
	}

	return &workerPool{sem: make(chan struct{}, workers)}
}

// Do runs fn once a slot is free, or gives up when ctx is done first.
func (p *workerPool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	return fn()
}
