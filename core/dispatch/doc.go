// Package dispatch classifies raw dispatch payloads into model.Dispatch values
// and prunes entries that can no longer affect the derived state.
package dispatch
