// Package ingest provides a worker-pool-driven bulk-ingestion helper on
// top of the sec-cs façade: callers hand it a batch of contents and get
// back one handle (or error) per content, computed by a bounded pool of
// workers pulling off a shared queue.
package ingest

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	seccs "github.com/i5heu/sec-cs"
	"github.com/i5heu/sec-cs/pkg/logging"
)

// Result is the outcome of ingesting one item, tagged with a correlation
// ID so a caller can match results back to submitted work across a log
// stream.
type Result struct {
	ID     uuid.UUID
	Handle seccs.Handle
	Err    error
}

// Option configures an Ingestor at construction time.
type Option func(*Ingestor)

// WithConcurrency sets how many workers pull from the job queue
// concurrently. A non-positive value (the default) falls back to
// runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(in *Ingestor) { in.concurrency = n }
}

// WithCompression transparently zstd-compresses each item's bytes before
// handing them to the store. This is opt-in and off by default: because
// the store's digest is convergent over whatever bytes it is given,
// toggling compression moves content into a different digest namespace
// than the same bytes ingested uncompressed.
func WithCompression(enabled bool) Option {
	return func(in *Ingestor) { in.compress = enabled }
}

// Ingestor drives concurrent PutContent calls against a store.
type Ingestor struct {
	store       *seccs.Store
	concurrency int
	compress    bool
}

// New returns an Ingestor bound to store.
func New(store *seccs.Store, opts ...Option) *Ingestor {
	in := &Ingestor{store: store}
	for _, opt := range opts {
		opt(in)
	}
	if in.concurrency < 1 {
		in.concurrency = runtime.NumCPU()
	}
	return in
}

type job struct {
	index int
	data  []byte
}

// PutAll ingests every item in items, returning one Result per item in
// the same order. A worker failing on one item does not stop the others;
// check each Result's Err individually.
func (in *Ingestor) PutAll(ctx context.Context, items [][]byte) []Result {
	results := make([]Result, len(items))
	jobs := make(chan job)

	var wg sync.WaitGroup
	wg.Add(in.concurrency)
	for i := 0; i < in.concurrency; i++ {
		go func() {
			defer wg.Done()
			in.worker(ctx, jobs, results)
		}()
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{index: i, data: item}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return results
}

func (in *Ingestor) worker(ctx context.Context, jobs <-chan job, results []Result) {
	for j := range jobs {
		id := uuid.New()
		data := j.data

		if in.compress {
			compressed, err := compress(data)
			if err != nil {
				results[j.index] = Result{ID: id, Err: err}
				logging.Logger.Warn("ingest: compressing item", "id", id, "error", err)
				continue
			}
			data = compressed
		}

		handle, err := in.store.PutContent(ctx, data)
		results[j.index] = Result{ID: id, Handle: handle, Err: err}
		if err != nil {
			logging.Logger.Warn("ingest: put failed", "id", id, "error", err)
			continue
		}
		logging.Logger.Debug("ingest: put complete", "id", id, "handle", handle.String())
	}
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}
