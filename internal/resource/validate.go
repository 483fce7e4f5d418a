package resource

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Validate checks a record against its schema and returns messages per field.
// An empty map means the record is valid. Read-only, upload and audit fields
// are never validated.
func Validate(s *Schema, r Record) map[string][]string {
	errs := map[string][]string{}
	add := func(name, msg string) { errs[name] = append(errs[name], msg) }

	for _, f := range s.Fields {
		if !f.Writable() {
			continue
		}
		if f.Kind == KindBool {
			continue
		}
		if f.Kind == KindRefs {
			if f.Required && len(r.Refs(f.Name)) == 0 {
				add(f.Name, f.Label+" is required")
			}
			continue
		}
		v := strings.TrimSpace(r.String(f.Name))
		if v == "" {
			if f.Required {
				add(f.Name, f.Label+" is required")
			}
			continue
		}
		switch f.Kind {
		case KindInt:
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				add(f.Name, f.Label+" must be a whole number")
				continue
			}
		case KindDecimal:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				add(f.Name, f.Label+" must be a number")
				continue
			}
		case KindDate:
			if _, err := time.Parse(dateLayout, v); err != nil {
				add(f.Name, f.Label+" must be a date (YYYY-MM-DD)")
				continue
			}
		case KindEnum:
			if !slices.Contains(f.Options, v) {
				add(f.Name, f.Label+" must be one of "+strings.Join(f.Options, ", "))
				continue
			}
		}
		if !f.Matches(v) {
			msg := f.PatternMessage
			if msg == "" {
				msg = f.Label + " has an invalid format"
			}
			add(f.Name, msg)
		}
	}
	return errs
}

// Bind builds a record from submitted form values on top of base. Only writable
// fields are read; id and audit fields are carried over from base untouched.
func Bind(s *Schema, base Record, values url.Values) Record {
	r := base.Clone()
	if r.Values == nil {
		r = New(s)
		r.ID, r.Audit = base.ID, base.Audit
	}
	for _, f := range s.Fields {
		if !f.Writable() {
			continue
		}
		switch f.Kind {
		case KindBool:
			r.Values[f.Name] = formBool(values.Get(f.Name))
		case KindRefs:
			r.Values[f.Name] = bindRefs(values[f.Name], r.Refs(f.Name))
		default:
			if _, posted := values[f.Name]; !posted {
				continue
			}
			r.Values[f.Name] = strings.TrimSpace(values.Get(f.Name))
		}
	}
	return r
}

// bindRefs maps posted ids (repeated values or one comma separated value)
// to refs, keeping the names already known for those ids.
func bindRefs(posted []string, known []Ref) []Ref {
	names := make(map[string]string, len(known))
	for _, ref := range known {
		names[ref.ID] = ref.Name
	}
	out := []Ref{}
	seen := map[string]bool{}
	for _, raw := range posted {
		for _, part := range strings.Split(raw, ",") {
			id, name, _ := strings.Cut(strings.TrimSpace(part), ":")
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if name == "" {
				name = names[id]
			}
			out = append(out, Ref{ID: id, Name: strings.TrimSpace(name)})
		}
	}
	return out
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}
