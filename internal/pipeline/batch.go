package pipeline

import (
	"context"
	"image"
	"sync"
)

// DefaultConcurrency is the number of images processed at once by a Batch.
const DefaultConcurrency = 4

// Runner runs the pipeline on one image. *Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, img image.Image) (Result, error)
}

// Item is one image of a batch. Load is called from a worker, so decoding
// runs concurrently too.
type Item struct {
	Name string
	Load func() (image.Image, error)
}

// ItemResult is the outcome for one Item.
type ItemResult struct {
	Name   string
	Result Result
	Err    error // Non-nil if loading or running failed
}

// Batch runs independent pipeline invocations concurrently.
type Batch struct {
	runner      Runner
	concurrency int
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithConcurrency sets the number of concurrent invocations.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatch creates a Batch.
func NewBatch(r Runner, opts ...BatchOption) *Batch {
	b := &Batch{
		runner:      r,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RunAll processes items and returns results in input order. Per-item
// failures are captured in ItemResult.Err rather than failing the batch; the
// returned error is only set when ctx ends first.
func (b *Batch) RunAll(ctx context.Context, items []Item) ([]ItemResult, error) {
	if len(items) == 0 {
		return []ItemResult{}, nil
	}

	results := make([]ItemResult, len(items))

	type workItem struct {
		index int
		item  Item
	}
	workCh := make(chan workItem, len(items))
	for i, it := range items {
		workCh <- workItem{index: i, item: it}
	}
	close(workCh)

	var wg sync.WaitGroup
	for range min(b.concurrency, len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				results[work.index] = b.runOne(ctx, work.item)
			}
		}()
	}
	wg.Wait()

	return results, ctx.Err()
}

func (b *Batch) runOne(ctx context.Context, it Item) ItemResult {
	out := ItemResult{Name: it.Name}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	img, err := it.Load()
	if err != nil {
		out.Err = err
		return out
	}
	out.Result, out.Err = b.runner.Run(ctx, img)
	return out
}
