// Package wire provides the value model for Druid request payloads and
// their canonical JSON encoding.
//
// Every rendered query, filter, extraction function and aggregator is built
// from wire values. The package imports nothing internal; all other internal
// packages import wire.
//
// Key constraints:
//   - Values form a sealed interface (Null, String, Int, Float, Bool, Array, Object)
//   - Canonical encoding sorts object keys by UTF-16 code units, does not
//     escape HTML and NFC-normalizes strings, so the same request always
//     produces the same bytes
//   - Non-finite floats are rejected at encoding time
package wire
