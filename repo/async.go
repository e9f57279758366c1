package repo

import (
	"context"
	"io"
	"runtime"

	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/object"
)

// AsyncResult is delivered on the channel returned by WriteMetadataAsync
// and WriteContentAsync once the dispatched goroutine completes.
type AsyncResult struct {
	Checksum hash.Checksum
	Err      error
}

// asyncPool bounds how many WriteMetadataAsync/WriteContentAsync calls
// run their blocking I/O concurrently: a buffered channel of tokens,
// acquired before a dispatched goroutine starts its real work and
// released on return.
type asyncPool struct {
	tokens chan struct{}
}

func newAsyncPool(size int) *asyncPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &asyncPool{tokens: make(chan struct{}, size)}
}

func (p *asyncPool) acquire(ctx context.Context) error {
	select {
	case p.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *asyncPool) release() {
	<-p.tokens
}

func (r *Repository) asyncPoolFor() *asyncPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.async == nil {
		r.async = newAsyncPool(0)
	}
	return r.async
}

// WriteMetadataAsync dispatches WriteMetadata onto a worker goroutine
// taken from a bounded pool, returning immediately with a channel that
// receives the single result. Every stats mutation made by that
// goroutine is still serialized through txStats's own mutex (see
// repo/stats.go); the devino cache, if any, is only ever read here,
// never written — ScanHardlinks must complete before workers start.
func (r *Repository) WriteMetadataAsync(ctx context.Context, kind hash.ObjectType, data io.Reader) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	pool := r.asyncPoolFor()

	go func() {
		defer close(out)
		if err := pool.acquire(ctx); err != nil {
			out <- AsyncResult{Err: err}
			return
		}
		defer pool.release()

		csum, err := r.WriteMetadata(ctx, kind, data)
		out <- AsyncResult{Checksum: csum, Err: err}
	}()

	return out
}

// WriteContentAsync is WriteContent, dispatched the same way as
// WriteMetadataAsync.
func (r *Repository) WriteContentAsync(ctx context.Context, info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	pool := r.asyncPoolFor()

	go func() {
		defer close(out)
		if err := pool.acquire(ctx); err != nil {
			out <- AsyncResult{Err: err}
			return
		}
		defer pool.release()

		csum, err := r.WriteContent(ctx, info, xattrList, payload, declaredLength)
		out <- AsyncResult{Checksum: csum, Err: err}
	}()

	return out
}
