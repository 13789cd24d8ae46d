// Package mstore implements docstore.IDatabase on MongoDB.
//
// Identifiers are ObjectIDs on the server and hex strings everywhere else; toObjectID converts
// them back at the driver boundary. Values read from the driver are converted to plain Go
// values (bson.D and bson.M become map[string]any, bson.A becomes []any, DateTime becomes
// time.Time) so that callers never see driver types.
//
// Integration tests are guarded by the "mongotest" build tag:
//
//	go test -tags mongotest ./lib/docstore/mstore/...
package mstore
