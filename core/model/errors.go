package model

import "errors"

var (
	// ErrDeviceMalformed marks a device entry that cannot be derived at all.
	ErrDeviceMalformed = errors.New("device entry malformed")
	// ErrSnapshotUnavailable is returned when the fetch layer produced no snapshot.
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")
	// ErrUnparseable reports a value that could not be interpreted.
	ErrUnparseable = errors.New("unparseable value")
)
