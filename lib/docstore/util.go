package docstore

import "errors"

// IsCode reports whether err is a document store Error with the given code.
func IsCode(err error, code RetCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// CopyDocument returns a deep copy of a document. Nested maps and slices are copied;
// other values are shared.
func CopyDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
