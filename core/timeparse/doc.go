// Package timeparse turns the heterogeneous timestamp strings returned by the
// tariff API into absolute instants and wall-clock times. Nothing here fails:
// input that cannot be interpreted yields model.Fallback.
package timeparse
