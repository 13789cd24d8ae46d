package docstore

import (
	"context"
	"fmt"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// IDField is the name of the identifier attribute of every document.
const IDField = "_id"

// Document is a single stored document. Identifiers are always exposed as strings.
type Document = map[string]any

// Filter is an equality filter on top-level fields. An empty filter matches every document.
// Backends with a richer query language (MongoDB) accept their own operators as values.
type Filter = map[string]any

// IndexType is the kind of index requested at registration time
type IndexType uint8

const (
	IndexTRegular IndexType = iota // Ascending single field index
	IndexTUnique                   // Ascending single field index with a uniqueness constraint
	IndexTGeo                      // Spherical index on a GeoJSON point field
)

func (t IndexType) String() string {
	switch t {
	case IndexTRegular:
		return "regular"
	case IndexTUnique:
		return "unique"
	case IndexTGeo:
		return "2dsphere"
	default:
		return "unknown"
	}
}

// IndexSpec describes an index on a single field.
type IndexSpec struct {
	Field string
	Type  IndexType
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IDatabase hands out collections by name.
type IDatabase interface {
	// Collection returns the handle of a (possibly not yet existing) collection.
	Collection(name string) ICollection
	// Close releases the connection to the database.
	Close(ctx context.Context) (err error)
}

// ICollection is the durable document store as seen by the model layer.
// Absence is reported with a boolean; errors are reserved for failures.
type ICollection interface {
	// InsertOne stores a new document and returns the identifier assigned by the store.
	// A document that already carries an identifier is rejected.
	InsertOne(ctx context.Context, doc Document) (id string, err error)
	// UpdateByID sets the given fields on the document with the given identifier.
	// The boolean is false if no such document exists.
	UpdateByID(ctx context.Context, id string, set Document) (matched bool, err error)
	// DeleteByID removes a document. The boolean is false if no such document existed.
	DeleteByID(ctx context.Context, id string) (deleted bool, err error)
	// DeleteMany removes every document matching the filter and returns how many were removed.
	DeleteMany(ctx context.Context, filter Filter) (n int64, err error)
	// FindByID returns the document with the given identifier.
	FindByID(ctx context.Context, id string) (doc Document, found bool, err error)
	// Find returns a forward cursor over the documents matching the filter.
	Find(ctx context.Context, filter Filter) (cursor ICursor, err error)
	// Aggregate runs an aggregation pipeline and returns the raw result documents.
	Aggregate(ctx context.Context, pipeline []Document) (cursor ICursor, err error)
	// CreateIndex creates an index. Creating an existing index again is a no-op.
	CreateIndex(ctx context.Context, spec IndexSpec) (err error)
}

// ICursor is a forward-only cursor over documents.
//
// Usage:
//
//	for cur.Next(ctx) {
//		doc := cur.Document()
//	}
//	if err := cur.Err(); err != nil { ... }
type ICursor interface {
	// Next advances the cursor. It returns false on exhaustion or error.
	Next(ctx context.Context) (ok bool)
	// Document returns the current document with its identifier as a string.
	Document() (doc Document)
	// Err returns the error that stopped the iteration, if any.
	Err() (err error)
	// Close releases the cursor. It is safe to call more than once.
	Close(ctx context.Context) (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("DocumentStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new document store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the backend.
	RetCInvalidOperation                    // 3: Invalid operation (e.g. malformed identifier).
	RetCDuplicateKey                        // 4: A unique index rejected the write.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCDuplicateKey:
		return "DuplicateKey"
	default:
		return "Unknown"
	}
}
