// Package sessions implements a user directory with token based sessions on top of
// cache.ICacheStore.
//
// Every user is a hash at "sessions:user:<username>" with the fields username, full_name,
// password (bcrypt hash), privileges and token. Registration uses HSETNX on the username field
// as an atomic guard, so concurrent registrations of the same name create exactly one record.
//
// A login issues a random 6-digit token and stores "sessions:session:<token>" -> username with
// a lifetime of 30 days. Tokens are capability leases: they expire on their own, are not
// extended by use, and a new login does not revoke older tokens of the same user.
//
// The directory keeps no state besides the store. It is safe to create one per request.
package sessions
