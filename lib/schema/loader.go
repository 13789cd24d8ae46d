package schema

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"sort"
)

// LoadDefinitions parses a definitions document mapping kind names to definitions:
//
//	widget:
//	  required_vars: [name]
//	  admissible_vars: [name, color]
//	  unique_indexes: [name]
//	  location_index: address
//
// Unknown keys are rejected. The entries are returned sorted by kind.
func LoadDefinitions(r io.Reader) ([]*Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	defs := map[string]Definition{}
	if err := dec.Decode(&defs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	kinds := make([]string, 0, len(defs))
	for kind := range defs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	entries := make([]*Entry, 0, len(kinds))
	for _, kind := range kinds {
		e, err := NewEntry(kind, defs[kind])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadFile reads definitions from a YAML file
func LoadFile(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDefinitions(f)
}
