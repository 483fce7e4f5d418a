package resource

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var builtinSchemas []byte

// Registry is the set of entity modules known to the console.
type Registry struct {
	schemas []*Schema
	byKey   map[string]*Schema
}

type schemaFile struct {
	Resources []*Schema `yaml:"resources"`
}

// Parse builds a registry from a YAML schema document.
func Parse(data []byte) (*Registry, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schemas: %w", err)
	}
	reg := &Registry{byKey: map[string]*Schema{}}
	for _, s := range file.Resources {
		if err := s.prepare(); err != nil {
			return nil, err
		}
		for _, key := range []string{s.Name, s.Plural} {
			if other, dup := reg.byKey[key]; dup && other != s {
				return nil, fmt.Errorf("schema key %q declared twice", key)
			}
			reg.byKey[key] = s
		}
		reg.schemas = append(reg.schemas, s)
	}
	return reg, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry of built-in entity modules.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(builtinSchemas)
	})
	return defaultReg, defaultErr
}

// MustDefault is Default for program start-up.
func MustDefault() *Registry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup finds a schema by singular name or plural route segment.
func (r *Registry) Lookup(key string) (*Schema, bool) {
	s, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	return s, ok
}

// All returns the schemas in declaration order.
func (r *Registry) All() []*Schema {
	return append([]*Schema(nil), r.schemas...)
}

// Names returns the plural names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s.Plural)
	}
	sort.Strings(out)
	return out
}
