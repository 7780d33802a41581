// Package source fetches raw account snapshots from a JSON file or an HTTP
// endpoint.
package source
