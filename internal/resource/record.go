package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Ref is one element of a nested {id, name} collection, e.g. a privilege of a role.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Audit holds the server-managed bookkeeping fields. They are absent (zero)
// on a record that has never been saved.
type Audit struct {
	CreatedBy string
	UpdatedBy string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// Record is one entity instance. Values holds one normalized value per schema
// field: string for scalar kinds, bool for KindBool and []Ref for KindRefs.
type Record struct {
	ID     *string
	Values map[string]any
	Audit  Audit
}

// New returns an unsaved record with every field at its default.
func New(s *Schema) Record {
	r := Record{Values: make(map[string]any, len(s.Fields))}
	for _, f := range s.Fields {
		r.Values[f.Name] = defaultValue(f)
	}
	return r
}

// IsNew reports whether the record has never been persisted.
func (r Record) IsNew() bool {
	return r.ID == nil
}

// IDString returns the id or "" for a new record.
func (r Record) IDString() string {
	if r.ID == nil {
		return ""
	}
	return *r.ID
}

// String returns a scalar value as text.
func (r Record) String(name string) string {
	switch v := r.Values[name].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []Ref:
		names := make([]string, 0, len(v))
		for _, ref := range v {
			names = append(names, ref.Name)
		}
		return strings.Join(names, ", ")
	}
	return ""
}

// Cell renders a column of a list row, audit columns included. Empty values
// render as "".
func (r Record) Cell(col string) string {
	switch col {
	case FieldID:
		return r.IDString()
	case FieldCreatedBy:
		return r.Audit.CreatedBy
	case FieldUpdatedBy:
		return r.Audit.UpdatedBy
	case FieldCreatedAt:
		return formatStamp(r.Audit.CreatedAt)
	case FieldUpdatedAt:
		return formatStamp(r.Audit.UpdatedAt)
	}
	return r.String(col)
}

func formatStamp(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02 15:04")
}

// Bool returns a boolean value.
func (r Record) Bool(name string) bool {
	b, _ := r.Values[name].(bool)
	return b
}

// Refs returns a nested collection.
func (r Record) Refs(name string) []Ref {
	refs, _ := r.Values[name].([]Ref)
	return refs
}

// Set stores a value, normalizing it for the field kind.
func (r *Record) Set(f Field, v any) {
	if r.Values == nil {
		r.Values = map[string]any{}
	}
	if nv, ok := normalize(f, v); ok {
		r.Values[f.Name] = nv
		return
	}
	r.Values[f.Name] = defaultValue(f)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{Audit: r.Audit, Values: make(map[string]any, len(r.Values))}
	if r.ID != nil {
		id := *r.ID
		out.ID = &id
	}
	for k, v := range r.Values {
		if refs, ok := v.([]Ref); ok {
			v = append([]Ref(nil), refs...)
		}
		out.Values[k] = v
	}
	return out
}

// FromAPIResponse normalizes a server payload into a record. Missing or
// mistyped fields take their defaults; it never fails.
func FromAPIResponse(s *Schema, data map[string]any) Record {
	r := New(s)
	if data == nil {
		return r
	}
	if id, ok := scalarString(data[FieldID]); ok && id != "" {
		r.ID = &id
	}
	for _, f := range s.Fields {
		raw, present := data[f.Name]
		if !present || raw == nil {
			continue
		}
		if v, ok := normalize(f, raw); ok {
			r.Values[f.Name] = v
		}
	}
	r.Audit = Audit{
		CreatedBy: actorName(data[FieldCreatedBy]),
		UpdatedBy: actorName(data[FieldUpdatedBy]),
		CreatedAt: parseTime(data[FieldCreatedAt]),
		UpdatedAt: parseTime(data[FieldUpdatedAt]),
	}
	return r
}

// DecodeJSON decodes a JSON object and applies FromAPIResponse.
func DecodeJSON(s *Schema, raw []byte) (Record, error) {
	data, err := DecodeObject(raw)
	if err != nil {
		return Record{}, err
	}
	return FromAPIResponse(s, data), nil
}

// Payload builds the create/update body. It contains schema fields only:
// never the id, audit fields or upload-managed URLs.
func (r Record) Payload(s *Schema) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		if f.ReadOnly || f.Uploadable() {
			continue
		}
		v, ok := r.Values[f.Name]
		if !ok {
			v = defaultValue(f)
		}
		out[f.Name] = wireValue(f, v)
	}
	return out
}

func defaultValue(f Field) any {
	if f.Default != nil {
		if v, ok := normalize(f, f.Default); ok {
			return v
		}
	}
	switch f.Kind {
	case KindBool:
		return false
	case KindRefs:
		return []Ref{}
	default:
		return ""
	}
}

func normalize(f Field, raw any) (any, bool) {
	switch f.Kind {
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			return b, err == nil
		case json.Number:
			n, err := v.Int64()
			return n != 0, err == nil
		case float64:
			return v != 0, true
		case int:
			return v != 0, true
		}
		return nil, false
	case KindRefs:
		return normalizeRefs(raw)
	case KindInt:
		s, ok := scalarString(raw)
		if !ok {
			return nil, false
		}
		if s == "" {
			return "", true
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			if fl, ferr := strconv.ParseFloat(s, 64); ferr == nil && fl == math.Trunc(fl) {
				return strconv.FormatInt(int64(fl), 10), true
			}
			return nil, false
		}
		return s, true
	case KindDate:
		s, ok := scalarString(raw)
		if !ok {
			return nil, false
		}
		if len(s) > 10 {
			if t := parseTime(s); t != nil {
				return t.Format(dateLayout), true
			}
		}
		return s, true
	default:
		s, ok := scalarString(raw)
		return s, ok
	}
}

func normalizeRefs(raw any) (any, bool) {
	switch v := raw.(type) {
	case []Ref:
		return append([]Ref{}, v...), true
	case []any:
		out := make([]Ref, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				id, _ := scalarString(it["id"])
				name, _ := scalarString(it["name"])
				if id == "" && name == "" {
					continue
				}
				out = append(out, Ref{ID: id, Name: name})
			default:
				if id, ok := scalarString(it); ok && id != "" {
					out = append(out, Ref{ID: id})
				}
			}
		}
		return out, true
	}
	return nil, false
}

func wireValue(f Field, v any) any {
	switch f.Kind {
	case KindBool:
		b, _ := v.(bool)
		return b
	case KindRefs:
		refs, _ := v.([]Ref)
		if refs == nil {
			refs = []Ref{}
		}
		return refs
	case KindInt, KindDecimal:
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		if !jsonNumber.MatchString(s) {
			return s
		}
		return json.Number(s)
	case KindDate:
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		return s
	default:
		s, _ := v.(string)
		return s
	}
}

func scalarString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// actorName accepts either a plain value or an embedded {name} / {email} object.
func actorName(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		for _, key := range []string{"name", "email", "id"} {
			if s, ok := scalarString(m[key]); ok && s != "" {
				return s
			}
		}
		return ""
	}
	s, _ := scalarString(raw)
	return s
}

const dateLayout = "2006-01-02"

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
}

func parseTime(raw any) *time.Time {
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return &t
		}
	}
	return nil
}

// DecodeObject decodes a JSON object keeping numbers as json.Number so ids and
// decimals keep their exact text.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return data, nil
}
