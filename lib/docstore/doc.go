// Package docstore defines the durable document store behind dODM models.
//
// A database hands out one ICollection per model kind. Collections assign identifiers on insert
// and expose them as strings; documents are plain map[string]any values with the identifier
// under IDField ("_id"). Filters are equality matches on top-level fields.
//
// Key Components:
//
//   - IDatabase / ICollection / ICursor: insert, partial update by identifier, delete by
//     identifier or filter, lookup by identifier, forward cursors, aggregation pipelines and
//     index creation (regular, unique, 2dsphere).
//
//   - Error System: coded errors (RetCDuplicateKey, RetCInvalidOperation,
//     RetCUnsupportedOperation). Use IsCode to test for a code through wrapped errors.
//
// Implementations:
//
//   - MongoDB (mstore): go.mongodb.org/mongo-driver/v2, ObjectID identifiers in hex form.
//   - Memory (memstore): in-process, UUID identifiers, no aggregation support.
//
// Both implementations pass the conformance suite in the doctest package.
package docstore
