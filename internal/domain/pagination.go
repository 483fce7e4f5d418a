package domain

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultPageSize is the page size used when none is specified.
const DefaultPageSize = 10

// PageSizes are the page sizes offered by list views.
var PageSizes = []int{5, 10, 25, 50, 100}

// DefaultSortField is the column lists sort by until the user picks another.
const DefaultSortField = "updated_at"

// Wire parameter names of the backend list contract.
const (
	ParamPage      = "page"
	ParamPerPage   = "per_page"
	ParamSortBy    = "sort_by"
	ParamSortOrder = "sort_order"
)

// Sort is a single-column sort.
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort is updated_at descending.
func DefaultSort() Sort {
	return Sort{Field: DefaultSortField, Desc: true}
}

// Order returns the wire value of the sort direction.
func (s Sort) Order() string {
	if s.Desc {
		return "desc"
	}
	return "asc"
}

// Pagination is the UI pagination model. Page is 0-based.
type Pagination struct {
	Page     int
	PageSize int
}

// ListQuery is the complete state a list view sends to the list endpoint.
type ListQuery struct {
	Pagination      Pagination
	Sort            Sort
	ColumnFilters   map[string]string
	AdvancedFilters map[string]string
}

// NewListQuery returns the initial list state: first page, default size, updated_at desc.
func NewListQuery(pageSize int) ListQuery {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return ListQuery{
		Pagination: Pagination{Page: 0, PageSize: pageSize},
		Sort:       DefaultSort(),
	}
}

// Filters merges column and advanced filters. Advanced filters win on key
// collision. Empty values are dropped.
func (q ListQuery) Filters() map[string]string {
	out := map[string]string{}
	for k, v := range q.ColumnFilters {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	for k, v := range q.AdvancedFilters {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Params converts the query into wire parameters. The page becomes 1-based here.
func (q ListQuery) Params() url.Values {
	v := q.ExportParams()
	size := q.Pagination.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := q.Pagination.Page
	if page < 0 {
		page = 0
	}
	v.Set(ParamPage, strconv.Itoa(page+1))
	v.Set(ParamPerPage, strconv.Itoa(size))
	return v
}

// ExportParams carries sort and filters but no pagination.
func (q ListQuery) ExportParams() url.Values {
	v := url.Values{}
	if q.Sort.Field != "" {
		v.Set(ParamSortBy, q.Sort.Field)
		v.Set(ParamSortOrder, q.Sort.Order())
	}
	filters := q.Filters()
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isReservedParam(k) {
			continue
		}
		v.Set(k, filters[k])
	}
	return v
}

// QueryFromParams restores a ListQuery from wire parameters. Every non-reserved
// key becomes a column filter; callers split advanced filters out themselves.
func QueryFromParams(v url.Values) ListQuery {
	q := NewListQuery(DefaultPageSize)
	if n, err := strconv.Atoi(v.Get(ParamPage)); err == nil && n > 0 {
		q.Pagination.Page = n - 1
	}
	if n, err := strconv.Atoi(v.Get(ParamPerPage)); err == nil && n > 0 {
		q.Pagination.PageSize = n
	}
	if f := strings.TrimSpace(v.Get(ParamSortBy)); f != "" {
		q.Sort.Field = f
		q.Sort.Desc = !strings.EqualFold(v.Get(ParamSortOrder), "asc")
	}
	for k := range v {
		if isReservedParam(k) {
			continue
		}
		if val := strings.TrimSpace(v.Get(k)); val != "" {
			if q.ColumnFilters == nil {
				q.ColumnFilters = map[string]string{}
			}
			q.ColumnFilters[k] = val
		}
	}
	return q
}

// PageCount returns the number of pages needed for total rows.
func (p Pagination) PageCount(total int64) int {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// HasNext reports whether a page follows the current one.
func (p Pagination) HasNext(total int64) bool {
	return p.Page+1 < p.PageCount(total)
}

// ListResult is the decoded body of a list endpoint.
type ListResult[T any] struct {
	Data  []T
	Total int64
}

func isReservedParam(k string) bool {
	switch k {
	case ParamPage, ParamPerPage, ParamSortBy, ParamSortOrder:
		return true
	}
	return false
}
