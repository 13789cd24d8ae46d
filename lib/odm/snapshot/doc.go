// Package snapshot encodes model attribute sets for the cache.
//
// A snapshot is always the full attribute set of a persisted model including its identifier
// as a string. Two formats are available:
//
//   - BSON (default): the document store encoding. Integers, floats, binary data and times
//     survive a round trip with their types.
//   - JSON: readable with any Redis client, but lossy for times, binary data and whole-number floats.
//
// Both serializers return normalized values (see Normalize), which is also the form the
// model layer keeps its attributes in. A snapshot written by one process is therefore read
// back unchanged by any other process using the same format.
package snapshot
