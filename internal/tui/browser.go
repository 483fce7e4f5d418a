// Package tui is a terminal list browser for one entity module. It drives a
// listview.Controller, so paging, sorting, filtering and the confirmation
// gated row actions behave exactly like the console list page.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tms-console/internal/domain"
	"tms-console/internal/listview"
	"tms-console/internal/resource"
)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeConfirm
)

// loadedMsg reports the end of a list fetch.
type loadedMsg struct{ err error }

// actionMsg reports the end of a confirmed deactivate or delete.
type actionMsg struct {
	conf listview.Confirmation
	err  error
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx    context.Context
	ctrl   *listview.Controller
	schema *resource.Schema
	styles styles

	mode    mode
	cursor  int
	input   textinput.Model
	pending listview.Confirmation
	notice  string
	err     error
	width   int
}

// New creates a browser over ctrl. Fetches run with ctx.
func New(ctx context.Context, ctrl *listview.Controller) Model {
	in := textinput.New()
	in.Placeholder = "field=value"
	in.Prompt = "filter: "
	in.CharLimit = 200
	return Model{
		ctx:    ctx,
		ctrl:   ctrl,
		schema: ctrl.Schema(),
		styles: defaultStyles(),
		input:  in,
	}
}

// Run starts the browser on the terminal and blocks until the user quits.
func Run(ctx context.Context, ctrl *listview.Controller) error {
	_, err := tea.NewProgram(New(ctx, ctrl), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.fetch(m.ctrl.Load)
}

// fetch wraps one controller call that issues exactly one list request.
func (m Model) fetch(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case loadedMsg:
		m.err = msg.err
		m.clampCursor()
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
			return m, nil
		}
		m.err = m.ctrl.Err()
		m.notice = actionNotice(m.schema, msg.conf)
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.ctrl.Query()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncSelection()
	case "down", "j":
		if m.cursor < len(m.ctrl.Rows())-1 {
			m.cursor++
		}
		m.syncSelection()
	case "n", "right":
		if !q.Pagination.HasNext(m.ctrl.Total()) {
			return m, nil
		}
		m.cursor = 0
		next := domain.Pagination{Page: q.Pagination.Page + 1, PageSize: q.Pagination.PageSize}
		return m, m.fetch(func(ctx context.Context) error { return m.ctrl.SetPagination(ctx, next) })
	case "p", "left":
		if q.Pagination.Page == 0 {
			return m, nil
		}
		m.cursor = 0
		prev := domain.Pagination{Page: q.Pagination.Page - 1, PageSize: q.Pagination.PageSize}
		return m, m.fetch(func(ctx context.Context) error { return m.ctrl.SetPagination(ctx, prev) })
	case "s":
		next := domain.Sort{Field: nextColumn(m.schema.Columns, q.Sort.Field), Desc: q.Sort.Desc}
		return m, m.fetch(func(ctx context.Context) error { return m.ctrl.SetSort(ctx, next) })
	case "r":
		flipped := domain.Sort{Field: q.Sort.Field, Desc: !q.Sort.Desc}
		return m, m.fetch(func(ctx context.Context) error { return m.ctrl.SetSort(ctx, flipped) })
	case "/":
		m.mode = modeFilter
		m.input.SetValue("")
		return m, m.input.Focus()
	case "d":
		return m.request(m.ctrl.RequestDeactivate)
	case "x":
		return m.request(m.ctrl.RequestDelete)
	case "esc":
		if m.err != nil {
			m.notice = ""
			return m, m.fetch(m.ctrl.Dismiss)
		}
	}
	return m, nil
}

func (m Model) request(open func() (listview.Confirmation, error)) (tea.Model, tea.Cmd) {
	m.syncSelection()
	conf, err := open()
	if err != nil {
		m.err = err
		return m, nil
	}
	m.pending = conf
	m.mode = modeConfirm
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeBrowse
		conf, ctx := m.pending, m.ctx
		return m, func() tea.Msg {
			return actionMsg{conf: conf, err: m.ctrl.Confirm(ctx)}
		}
	case "n", "N", "esc", "q":
		m.ctrl.Cancel()
		m.mode = modeBrowse
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.input.Blur()
		filters, err := applyFilter(m.schema, m.ctrl.Query().ColumnFilters, m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.cursor = 0
		return m, m.fetch(func(ctx context.Context) error { return m.ctrl.SetColumnFilters(ctx, filters) })
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.Rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.syncSelection()
}

func (m *Model) syncSelection() {
	rows := m.ctrl.Rows()
	if m.cursor < len(rows) {
		m.ctrl.Select(rows[m.cursor].IDString())
		return
	}
	m.ctrl.ClearSelection()
}

// applyFilter parses "field=value" into a new column filter set. An empty
// value removes the filter.
func applyFilter(s *resource.Schema, current map[string]string, expr string) (map[string]string, error) {
	name, value, ok := strings.Cut(strings.TrimSpace(expr), "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, fmt.Errorf("filter must look like field=value")
	}
	if !slices.Contains(s.Columns, name) {
		if _, known := s.Field(name); !known {
			return nil, fmt.Errorf("unknown field %q", name)
		}
	}
	out := make(map[string]string, len(current)+1)
	for k, v := range current {
		out[k] = v
	}
	if value = strings.TrimSpace(value); value == "" {
		delete(out, name)
	} else {
		out[name] = value
	}
	return out, nil
}

func nextColumn(cols []string, current string) string {
	if len(cols) == 0 {
		return current
	}
	i := slices.Index(cols, current)
	return cols[(i+1)%len(cols)]
}

func actionNotice(s *resource.Schema, conf listview.Confirmation) string {
	if conf.Action == listview.ActionDeactivate {
		return fmt.Sprintf("%s %s deactivated.", s.Label, conf.ID)
	}
	return fmt.Sprintf("%s %s deleted.", s.Label, conf.ID)
}
