package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tms-console/internal/resource"
)

// parsePairs parses repeated key=value flags. Later keys win.
func parsePairs(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%s %q: expected key=value", flag, kv)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func readObjectFile(path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	obj, err := resource.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return obj, nil
}

// overlayObject copies the writable fields present in obj onto rec. id and
// audit fields in the file are ignored.
func overlayObject(s *resource.Schema, rec *resource.Record, obj map[string]any) {
	for _, f := range s.Fields {
		if !f.Writable() {
			continue
		}
		if raw, ok := obj[f.Name]; ok && raw != nil {
			rec.Set(f, raw)
		}
	}
}

// applySets applies --set field=value pairs. Values are stored as typed so
// that resource.Validate reports bad numbers and dates instead of silently
// falling back to defaults.
func applySets(s *resource.Schema, rec *resource.Record, sets []string) error {
	pairs, err := parsePairs("--set", sets)
	if err != nil {
		return err
	}
	for name, value := range pairs {
		f, ok := s.Field(name)
		if !ok {
			return fmt.Errorf("--set: %s has no field %q", strings.ToLower(s.Label), name)
		}
		if f.Uploadable() {
			return fmt.Errorf("--set: %s is filled by upload; use the upload command", name)
		}
		if !f.Writable() {
			return fmt.Errorf("--set: %s is read-only", name)
		}
		if rec.Values == nil {
			rec.Values = map[string]any{}
		}
		switch f.Kind {
		case resource.KindBool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("--set %s: %q is not a boolean", name, value)
			}
			rec.Values[f.Name] = b
		case resource.KindRefs:
			rec.Values[f.Name] = parseRefs(value)
		default:
			rec.Values[f.Name] = value
		}
	}
	return nil
}

// parseRefs reads "id[:name],id[:name]".
func parseRefs(v string) []resource.Ref {
	out := []resource.Ref{}
	seen := map[string]bool{}
	for _, part := range strings.Split(v, ",") {
		id, name, _ := strings.Cut(strings.TrimSpace(part), ":")
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, resource.Ref{ID: id, Name: strings.TrimSpace(name)})
	}
	return out
}

// recordJSON is the -o json shape of a record: schema fields plus id and
// whichever audit fields the server returned.
func recordJSON(s *resource.Schema, rec resource.Record) map[string]any {
	out := make(map[string]any, len(s.Fields)+5)
	out[resource.FieldID] = rec.ID
	for _, f := range s.Fields {
		out[f.Name] = rec.Values[f.Name]
	}
	if rec.Audit.CreatedBy != "" {
		out[resource.FieldCreatedBy] = rec.Audit.CreatedBy
	}
	if rec.Audit.UpdatedBy != "" {
		out[resource.FieldUpdatedBy] = rec.Audit.UpdatedBy
	}
	if rec.Audit.CreatedAt != nil {
		out[resource.FieldCreatedAt] = rec.Audit.CreatedAt.Format(time.RFC3339)
	}
	if rec.Audit.UpdatedAt != nil {
		out[resource.FieldUpdatedAt] = rec.Audit.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

// printRecord writes "Label  value" lines in schema order.
func printRecord(w io.Writer, s *resource.Schema, rec resource.Record) {
	type line struct{ label, value string }
	lines := []line{{"ID", rec.IDString()}}
	for _, f := range s.Fields {
		lines = append(lines, line{f.Label, rec.Cell(f.Name)})
	}
	for _, col := range []string{resource.FieldCreatedBy, resource.FieldCreatedAt, resource.FieldUpdatedBy, resource.FieldUpdatedAt} {
		if v := rec.Cell(col); v != "" {
			lines = append(lines, line{s.ColumnLabel(col), v})
		}
	}

	width := 0
	for _, l := range lines {
		width = max(width, utf8.RuneCountInString(l.label))
	}
	for _, l := range lines {
		value := l.value
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(w, "%s%s  %s\n", l.label, strings.Repeat(" ", width-utf8.RuneCountInString(l.label)), value)
	}
}
