// Package geo resolves postal addresses to GeoJSON points.
//
// A Resolver sits in front of an IProvider and memoizes its answers by exact address string,
// so every address costs at most one successful provider call per Resolver. Public geocoding
// services are rate limited: the Resolver waits a fixed delay before every attempt (including
// the first) and retries timeout-class errors up to MaxAttempts times. Addresses the provider
// does not know are remembered as failures; exhausted timeouts are not remembered.
//
// Providers:
//
//   - NominatimProvider: the OpenStreetMap Nominatim search API over HTTP. Rate limiting
//     (429) and gateway errors (503, 504) count as timeouts.
//   - StaticProvider: a fixed table for tests and offline operation.
//
// Models store resolved points under "<field>_loc". When resolution fails they store
// FailureSentinel instead, so an unresolvable address never blocks an assignment.
//
// Metrics (VictoriaMetrics): dodm_geo_memo_total{result="hit|miss"},
// dodm_geo_provider_calls_total and dodm_geo_provider_failures_total.
package geo
