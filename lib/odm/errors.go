package odm

import "errors"

var (
	// ErrMissingRequiredAttribute is returned when a model is constructed without a required attribute
	ErrMissingRequiredAttribute = errors.New("missing required attribute")
	// ErrAttributeNotAdmissible is returned when an attribute is not part of the kind's schema
	// or is the identifier
	ErrAttributeNotAdmissible = errors.New("attribute not admissible")
	// ErrAttributeNotFound is returned when reading an attribute that is not set
	ErrAttributeNotFound = errors.New("attribute not found")
	// ErrModelNotPersisted is returned when deleting a model that was never saved, or when
	// updating a model whose document no longer exists
	ErrModelNotPersisted = errors.New("model not persisted")
	// ErrModelDeleted is returned when using a model after Delete
	ErrModelDeleted = errors.New("model deleted")
)
