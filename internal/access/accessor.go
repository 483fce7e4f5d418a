// Package access wraps a resource client with the loading and error state a
// view needs, and guards list fetches against out-of-order responses.
package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"tms-console/internal/apiclient"
	"tms-console/internal/domain"
	"tms-console/internal/resource"
)

// ErrStale is returned by List when a newer List call superseded this one.
// Its result has been discarded.
var ErrStale = errors.New("list response superseded by a newer request")

// ErrClosed is returned for calls made after Close.
var ErrClosed = errors.New("accessor closed")

// Backend is the set of resource operations an Accessor delegates to.
// *apiclient.Resource implements it.
type Backend interface {
	Schema() *resource.Schema
	List(ctx context.Context, params url.Values) (domain.ListResult[resource.Record], error)
	Get(ctx context.Context, id string) (resource.Record, error)
	Create(ctx context.Context, rec resource.Record) (resource.Record, error)
	Update(ctx context.Context, id string, rec resource.Record) (resource.Record, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	UploadFile(ctx context.Context, id, fieldName, filename string, content io.Reader) (resource.Record, error)
	DownloadTemplate(ctx context.Context) (apiclient.Download, error)
	Export(ctx context.Context, params url.Values) (apiclient.Download, error)
	Import(ctx context.Context, filename string, content io.Reader) (apiclient.ImportSummary, error)
}

var _ Backend = (*apiclient.Resource)(nil)

// Accessor exposes the Backend operations plus Loading and Err. Errors are
// recorded and returned unchanged. There is no caching, dedup or retry.
type Accessor struct {
	backend Backend
	logger  *slog.Logger

	base   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    int
	err        error
	listSeq    uint64
	listCancel context.CancelFunc
}

// New creates an Accessor over b.
func New(b Backend, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Accessor{
		backend: b,
		logger:  logger.With("resource", b.Schema().Name),
		base:    base,
		cancel:  cancel,
	}
}

// Schema returns the schema of the wrapped backend.
func (a *Accessor) Schema() *resource.Schema { return a.backend.Schema() }

// Loading reports whether any call is in flight.
func (a *Accessor) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending > 0
}

// Err returns the error of the most recent failed call, cleared when the next
// call starts.
func (a *Accessor) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Close cancels every in-flight call. Later calls fail with ErrClosed.
func (a *Accessor) Close() {
	a.cancel()
}

// List fetches a page. Starting a List cancels the previous in-flight List;
// the superseded call returns ErrStale and leaves Err untouched.
func (a *Accessor) List(ctx context.Context, params url.Values) (domain.ListResult[resource.Record], error) {
	a.mu.Lock()
	if a.listCancel != nil {
		a.listCancel()
	}
	a.listSeq++
	seq := a.listSeq
	listCtx, cancel := context.WithCancel(ctx)
	a.listCancel = cancel
	a.mu.Unlock()
	defer cancel()

	res, err := run(a, listCtx, "list", func(ctx context.Context) (domain.ListResult[resource.Record], error) {
		return a.backend.List(ctx, params)
	}, func() bool { return a.listSeq != seq })
	if errors.Is(err, ErrStale) {
		return domain.ListResult[resource.Record]{}, err
	}
	return res, err
}

// Get fetches a single record.
func (a *Accessor) Get(ctx context.Context, id string) (resource.Record, error) {
	return run(a, ctx, "get", func(ctx context.Context) (resource.Record, error) {
		return a.backend.Get(ctx, id)
	}, nil)
}

// Create creates rec.
func (a *Accessor) Create(ctx context.Context, rec resource.Record) (resource.Record, error) {
	return run(a, ctx, "create", func(ctx context.Context) (resource.Record, error) {
		return a.backend.Create(ctx, rec)
	}, nil)
}

// Update updates record id.
func (a *Accessor) Update(ctx context.Context, id string, rec resource.Record) (resource.Record, error) {
	return run(a, ctx, "update", func(ctx context.Context) (resource.Record, error) {
		return a.backend.Update(ctx, id, rec)
	}, nil)
}

// Deactivate soft-deletes record id.
func (a *Accessor) Deactivate(ctx context.Context, id string) error {
	_, err := run(a, ctx, "deactivate", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.backend.Deactivate(ctx, id)
	}, nil)
	return err
}

// Delete hard-deletes record id.
func (a *Accessor) Delete(ctx context.Context, id string) error {
	_, err := run(a, ctx, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.backend.Delete(ctx, id)
	}, nil)
	return err
}

// UploadFile attaches a file to fieldName of record id.
func (a *Accessor) UploadFile(ctx context.Context, id, fieldName, filename string, content io.Reader) (resource.Record, error) {
	return run(a, ctx, "upload", func(ctx context.Context) (resource.Record, error) {
		return a.backend.UploadFile(ctx, id, fieldName, filename, content)
	}, nil)
}

// DownloadTemplate fetches the import template.
func (a *Accessor) DownloadTemplate(ctx context.Context) (apiclient.Download, error) {
	return run(a, ctx, "template", a.backend.DownloadTemplate, nil)
}

// Export fetches the filtered export.
func (a *Accessor) Export(ctx context.Context, params url.Values) (apiclient.Download, error) {
	return run(a, ctx, "export", func(ctx context.Context) (apiclient.Download, error) {
		return a.backend.Export(ctx, params)
	}, nil)
}

// Import uploads a filled template.
func (a *Accessor) Import(ctx context.Context, filename string, content io.Reader) (apiclient.ImportSummary, error) {
	return run(a, ctx, "import", func(ctx context.Context) (apiclient.ImportSummary, error) {
		return a.backend.Import(ctx, filename, content)
	}, nil)
}

// run brackets fn with the loading and error bookkeeping. stale is evaluated
// under the lock after fn returns; a stale result records nothing.
func run[T any](a *Accessor, ctx context.Context, op string, fn func(context.Context) (T, error), stale func() bool) (T, error) {
	var zero T
	if a.base.Err() != nil {
		return zero, ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(a.base, cancel)
	defer stop()

	a.mu.Lock()
	a.pending++
	a.err = nil
	a.mu.Unlock()

	res, err := fn(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending--
	if stale != nil && stale() {
		a.logger.Debug("discarding superseded response", "op", op)
		return zero, ErrStale
	}
	if err != nil {
		a.err = err
		a.logger.Debug("resource call failed", "op", op, "kind", domain.KindOf(err), "error", err)
	}
	return res, err
}
