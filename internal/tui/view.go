package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tms-console/internal/domain"
)

type styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Dialog   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header:   lipgloss.NewStyle().Bold(true).Underline(true),
		Selected: lipgloss.NewStyle().Reverse(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1),
	}
}

const maxCellWidth = 28

func (m Model) View() string {
	var b strings.Builder
	q := m.ctrl.Query()
	total := m.ctrl.Total()

	b.WriteString(m.styles.Title.Render(m.schema.PluralLabel))
	b.WriteString("  ")
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("page %d of %d, %d rows, sorted by %s %s",
		q.Pagination.Page+1, q.Pagination.PageCount(total), total,
		m.schema.ColumnLabel(q.Sort.Field), q.Sort.Order())))
	b.WriteString("\n")
	if f := q.Filters(); len(f) > 0 {
		b.WriteString(m.styles.Muted.Render("filters: " + formatFilters(f)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.table())

	if m.ctrl.Loading() {
		b.WriteString(m.styles.Muted.Render("loading..."))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(m.styles.Error.Render(errorText(m.err)))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}

	switch m.mode {
	case modeConfirm:
		b.WriteString(m.styles.Dialog.Render(m.pending.Title + "\n\n" + m.pending.Message + "\n\n[y] confirm  [n] cancel"))
		b.WriteString("\n")
	case modeFilter:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.Muted.Render("↑/↓ select  n/p page  s sort  r reverse  / filter  d deactivate  x delete  q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) table() string {
	cols := m.schema.Columns
	rows := m.ctrl.Rows()
	if len(rows) == 0 {
		return m.styles.Muted.Render("No "+strings.ToLower(m.schema.PluralLabel)+" match the current filters.") + "\n"
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(m.schema.ColumnLabel(c))
	}
	for r, rec := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			v := truncate(orDash(rec.Cell(c)), maxCellWidth)
			cells[r][i] = v
			widths[i] = max(widths[i], lipgloss.Width(v))
		}
	}

	var b strings.Builder
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = pad(m.schema.ColumnLabel(c), widths[i])
	}
	b.WriteString("  " + m.styles.Header.Render(strings.Join(header, "  ")) + "\n")
	for r := range rows {
		line := make([]string, len(cols))
		for i := range cols {
			line[i] = pad(cells[r][i], widths[i])
		}
		text := strings.Join(line, "  ")
		if r == m.cursor {
			b.WriteString("> " + m.styles.Selected.Render(text) + "\n")
			continue
		}
		b.WriteString("  " + text + "\n")
	}
	return b.String()
}

// errorText flattens an API error into one line with its field messages.
func errorText(err error) string {
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		return err.Error()
	}
	details := apiErr.Details()
	if len(details) == 0 {
		return apiErr.Error()
	}
	return apiErr.Error() + ": " + strings.Join(details, "; ")
}

func formatFilters(f map[string]string) string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	slices.Sort(parts)
	return strings.Join(parts, ", ")
}

func pad(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
