package storage

import "github.com/go-faster/errors"

var (
	// ErrNoSnapshot means no snapshot has been published yet.
	ErrNoSnapshot = errors.New("no published snapshot")
	// ErrSuperseded is returned by Publish when a snapshot started later is already current.
	ErrSuperseded = errors.New("snapshot superseded by a newer run")

	ErrUnknownSnapshot = errors.New("unknown snapshot version")
)

const (
	stateBuilding  = "building"
	statePublished = "published"
)
