// Package listview holds the state of an entity list screen: the current page
// of rows, its query, the row selection and the pending dialogs.
package listview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"tms-console/internal/access"
	"tms-console/internal/apiclient"
	"tms-console/internal/domain"
	"tms-console/internal/resource"
)

// Source is the subset of resource operations a list screen uses.
// *access.Accessor implements it.
type Source interface {
	Schema() *resource.Schema
	List(ctx context.Context, params url.Values) (domain.ListResult[resource.Record], error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, filename string, content io.Reader) (apiclient.ImportSummary, error)
	Export(ctx context.Context, params url.Values) (apiclient.Download, error)
}

var _ Source = (*access.Accessor)(nil)

// Action names a mutating list action that needs confirmation.
type Action string

const (
	ActionDeactivate Action = "deactivate"
	ActionDelete     Action = "delete"
)

// Confirmation is a pending deactivate or delete awaiting the user's answer.
type Confirmation struct {
	Action  Action
	ID      string
	Title   string
	Message string
}

// ErrNoSelection is returned by actions that need exactly one selected row.
var ErrNoSelection = errors.New("select exactly one row first")

// Controller is safe for concurrent use. Fetches run without the lock held;
// superseded fetches are dropped by the Source.
type Controller struct {
	src Source

	mu           sync.Mutex
	query        domain.ListQuery
	rows         []resource.Record
	total        int64
	loading      bool
	err          error
	selected     string
	confirmation *Confirmation
	importOpen   bool
	importResult *apiclient.ImportSummary
	importErr    error
	fetches      int
}

// New creates a controller with the given initial query. Nothing is fetched
// until Load or one of the setters runs.
func New(src Source, q domain.ListQuery) *Controller {
	if q.Pagination.PageSize <= 0 {
		q.Pagination.PageSize = domain.DefaultPageSize
	}
	if q.Sort.Field == "" {
		q.Sort = domain.DefaultSort()
	}
	return &Controller{src: src, query: q}
}

// Schema returns the entity schema of the list.
func (c *Controller) Schema() *resource.Schema { return c.src.Schema() }

// Query returns a copy of the current query.
func (c *Controller) Query() domain.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyQuery(c.query)
}

// Rows returns the current page.
func (c *Controller) Rows() []resource.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]resource.Record(nil), c.rows...)
}

// Total is the server-reported row count across all pages.
func (c *Controller) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Loading reports whether a fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last fetch or action error.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Fetches counts list requests issued so far.
func (c *Controller) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Load fetches the current page.
func (c *Controller) Load(ctx context.Context) error {
	return c.update(ctx, func(*domain.ListQuery) {})
}

// SetPagination changes page and page size and re-fetches once.
func (c *Controller) SetPagination(ctx context.Context, p domain.Pagination) error {
	return c.update(ctx, func(q *domain.ListQuery) {
		if p.Page < 0 {
			p.Page = 0
		}
		if p.PageSize <= 0 {
			p.PageSize = q.Pagination.PageSize
		}
		q.Pagination = p
	})
}

// SetSort changes the sort and re-fetches once. An empty field restores the
// default sort.
func (c *Controller) SetSort(ctx context.Context, s domain.Sort) error {
	return c.update(ctx, func(q *domain.ListQuery) {
		if s.Field == "" {
			s = domain.DefaultSort()
		}
		q.Sort = s
	})
}

// SetColumnFilters replaces the grid filters and re-fetches once.
func (c *Controller) SetColumnFilters(ctx context.Context, f map[string]string) error {
	return c.update(ctx, func(q *domain.ListQuery) {
		q.ColumnFilters = copyMap(f)
	})
}

// SetAdvancedFilters replaces the filter panel values and re-fetches once.
func (c *Controller) SetAdvancedFilters(ctx context.Context, f map[string]string) error {
	return c.update(ctx, func(q *domain.ListQuery) {
		q.AdvancedFilters = copyMap(f)
	})
}

func (c *Controller) update(ctx context.Context, mutate func(*domain.ListQuery)) error {
	c.mu.Lock()
	mutate(&c.query)
	params := c.query.Params()
	c.loading = true
	c.fetches++
	c.mu.Unlock()

	res, err := c.src.List(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	if errors.Is(err, access.ErrStale) {
		return nil
	}
	c.loading = false
	if err != nil {
		c.err = err
		return err
	}
	c.err = nil
	c.rows = res.Data
	c.total = res.Total
	if c.selected != "" && !containsID(c.rows, c.selected) {
		c.selected = ""
	}
	return nil
}

// Select marks row id as the single selected row.
func (c *Controller) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = id
}

// ClearSelection deselects every row.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = ""
}

// Selected returns the selected row id and whether one is selected.
func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// CanView reports whether the View action is enabled.
func (c *Controller) CanView() bool { _, ok := c.Selected(); return ok }

// CanEdit reports whether the Edit action is enabled.
func (c *Controller) CanEdit() bool { _, ok := c.Selected(); return ok }

// CanDeactivate reports whether the Deactivate action is enabled.
func (c *Controller) CanDeactivate() bool {
	_, ok := c.Selected()
	return ok && c.Schema().Deactivatable
}

// CanDelete reports whether the Delete action is enabled.
func (c *Controller) CanDelete() bool { _, ok := c.Selected(); return ok }

// CanImport reports whether the entity supports bulk import.
func (c *Controller) CanImport() bool { return c.Schema().Importable }

// RequestDeactivate opens the deactivate confirmation for the selected row.
func (c *Controller) RequestDeactivate() (Confirmation, error) {
	if !c.Schema().Deactivatable {
		return Confirmation{}, fmt.Errorf("%s cannot be deactivated", c.Schema().PluralLabel)
	}
	return c.request(ActionDeactivate)
}

// RequestDelete opens the delete confirmation for the selected row.
func (c *Controller) RequestDelete() (Confirmation, error) {
	return c.request(ActionDelete)
}

func (c *Controller) request(action Action) (Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == "" {
		return Confirmation{}, ErrNoSelection
	}
	conf := NewConfirmation(c.src.Schema(), action, c.selected)
	c.confirmation = &conf
	return conf, nil
}

// NewConfirmation describes action on record id of schema s.
func NewConfirmation(s *resource.Schema, action Action, id string) Confirmation {
	switch action {
	case ActionDeactivate:
		return Confirmation{
			Action:  action,
			ID:      id,
			Title:   "Deactivate " + s.Label,
			Message: fmt.Sprintf("%s %s will be marked inactive and hidden from new assignments. It can be re-activated by editing it.", s.Label, id),
		}
	default:
		return Confirmation{
			Action:  ActionDelete,
			ID:      id,
			Title:   "Delete " + s.Label,
			Message: fmt.Sprintf("%s %s will be permanently deleted. This cannot be undone.", s.Label, id),
		}
	}
}

// Pending returns the open confirmation, if any.
func (c *Controller) Pending() (Confirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmation == nil {
		return Confirmation{}, false
	}
	return *c.confirmation, true
}

// Cancel closes the confirmation without calling the backend.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmation = nil
}

// Confirm performs the pending action. On success the selection is cleared
// and the current page reloaded. On failure the error is kept and returned
// and the rows stay as they were until Dismiss.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	conf := c.confirmation
	c.confirmation = nil
	c.mu.Unlock()
	if conf == nil {
		return nil
	}

	var err error
	switch conf.Action {
	case ActionDeactivate:
		err = c.src.Deactivate(ctx, conf.ID)
	case ActionDelete:
		err = c.src.Delete(ctx, conf.ID)
	}
	if err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.ClearSelection()
	return c.Load(ctx)
}

// Dismiss clears a displayed error and reloads the current page.
func (c *Controller) Dismiss(ctx context.Context) error {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
	return c.Load(ctx)
}

// OpenImport opens the import modal.
func (c *Controller) OpenImport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.importOpen = true
	c.importResult = nil
	c.importErr = nil
}

// ImportOpen reports whether the import modal is shown.
func (c *Controller) ImportOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.importOpen
}

// Import uploads one file. The outcome is kept for the modal until it closes.
func (c *Controller) Import(ctx context.Context, filename string, content io.Reader) (apiclient.ImportSummary, error) {
	sum, err := c.src.Import(ctx, filename, content)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.importErr = err
		c.importResult = nil
		return sum, err
	}
	c.importErr = nil
	c.importResult = &sum
	return sum, nil
}

// ImportOutcome returns the result of the last import in the open modal.
func (c *Controller) ImportOutcome() (*apiclient.ImportSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.importResult, c.importErr
}

// CloseImport closes the modal and reloads, whatever the import outcome.
func (c *Controller) CloseImport(ctx context.Context) error {
	c.mu.Lock()
	c.importOpen = false
	c.importResult = nil
	c.importErr = nil
	c.mu.Unlock()
	return c.Load(ctx)
}

// Export downloads every row matching the current sort and filters.
func (c *Controller) Export(ctx context.Context) (apiclient.Download, error) {
	c.mu.Lock()
	params := c.query.ExportParams()
	c.mu.Unlock()
	return c.src.Export(ctx, params)
}

func containsID(rows []resource.Record, id string) bool {
	for _, r := range rows {
		if r.IDString() == id {
			return true
		}
	}
	return false
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyQuery(q domain.ListQuery) domain.ListQuery {
	q.ColumnFilters = copyMap(q.ColumnFilters)
	q.AdvancedFilters = copyMap(q.AdvancedFilters)
	return q
}
