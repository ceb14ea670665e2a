// Package mangadex resolves series structure and chapter pages from the
// MangaDex API.
//
// Responses are decoded into typed structs and validated at the boundary.
// Series lookups issue several requests, so results are memoized in an
// in-process cache for the configured TTL.
package mangadex
