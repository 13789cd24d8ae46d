package schema

import (
	"errors"
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"sort"
)

// IDField is the name of the identifier attribute. It is always admissible and never settable.
const IDField = "_id"

// LocSuffix is appended to the location field to name the attribute holding the resolved point
const LocSuffix = "_loc"

// ErrInvalidDefinition is returned for definitions that can not be turned into an Entry
var ErrInvalidDefinition = errors.New("invalid schema definition")

// Definition is the declarative description of a kind as found in the definitions file
type Definition struct {
	RequiredVars   []string `yaml:"required_vars"`
	AdmissibleVars []string `yaml:"admissible_vars"`
	UniqueIndexes  []string `yaml:"unique_indexes"`
	RegularIndexes []string `yaml:"regular_indexes"`
	LocationIndex  string   `yaml:"location_index"` // location field; the geo index is created on <field>_loc
}

// Entry is the validated schema of one kind. It is read-only after creation.
type Entry struct {
	kind           string
	required       mapset.Set[string]
	admissible     mapset.Set[string]
	locationField  string
	uniqueIndexes  []string
	regularIndexes []string
}

// NewEntry validates a definition and computes the admissible set: the declared admissible
// attributes plus the required ones, the identifier and, if a location field is declared,
// "<field>_loc".
func NewEntry(kind string, def Definition) (*Entry, error) {
	if kind == "" {
		return nil, fmt.Errorf("%w: empty kind", ErrInvalidDefinition)
	}

	required := mapset.NewThreadUnsafeSet(def.RequiredVars...)
	admissible := mapset.NewThreadUnsafeSet(def.AdmissibleVars...)
	admissible = admissible.Union(required)

	if required.Contains(IDField) {
		return nil, fmt.Errorf("%w: kind %s: %s can not be required", ErrInvalidDefinition, kind, IDField)
	}

	if def.LocationIndex != "" {
		if !admissible.Contains(def.LocationIndex) {
			return nil, fmt.Errorf("%w: kind %s: location field %q is not admissible",
				ErrInvalidDefinition, kind, def.LocationIndex)
		}
		admissible.Add(def.LocationIndex + LocSuffix)
	}
	admissible.Add(IDField)

	return &Entry{
		kind:           kind,
		required:       required,
		admissible:     admissible,
		locationField:  def.LocationIndex,
		uniqueIndexes:  append([]string(nil), def.UniqueIndexes...),
		regularIndexes: append([]string(nil), def.RegularIndexes...),
	}, nil
}

// Kind returns the name of the kind
func (e *Entry) Kind() string { return e.kind }

// IsRequired reports whether name must be present at construction
func (e *Entry) IsRequired(name string) bool { return e.required.Contains(name) }

// IsAdmissible reports whether name may be set on a model of this kind
func (e *Entry) IsAdmissible(name string) bool { return e.admissible.Contains(name) }

// Required returns the required attributes in sorted order
func (e *Entry) Required() []string { return sorted(e.required) }

// Admissible returns the admissible attributes in sorted order
func (e *Entry) Admissible() []string { return sorted(e.admissible) }

// LocationField returns the attribute that triggers geocoding ("" if none)
func (e *Entry) LocationField() string { return e.locationField }

// GeoIndex returns the attribute carrying the resolved point ("" if no location field is declared)
func (e *Entry) GeoIndex() string {
	if e.locationField == "" {
		return ""
	}
	return e.locationField + LocSuffix
}

// UniqueIndexes returns the attributes with a unique index
func (e *Entry) UniqueIndexes() []string { return append([]string(nil), e.uniqueIndexes...) }

// RegularIndexes returns the attributes with a regular index
func (e *Entry) RegularIndexes() []string { return append([]string(nil), e.regularIndexes...) }

// MissingRequired returns the required attributes absent from attrs, sorted
func (e *Entry) MissingRequired(attrs map[string]any) []string {
	var missing []string
	for _, name := range e.Required() {
		if _, ok := attrs[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Inadmissible returns the names in attrs that are not admissible, sorted
func (e *Entry) Inadmissible(attrs map[string]any) []string {
	var out []string
	for name := range attrs {
		if !e.admissible.Contains(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func sorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
