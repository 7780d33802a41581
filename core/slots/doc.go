// Package slots evaluates the point-in-time and look-ahead predicates for
// each slot family. Look-ahead is computed by interval overlap so that
// dispatches shorter than any sampling step are never missed.
package slots
