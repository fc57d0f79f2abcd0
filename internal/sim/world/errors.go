package world

import "errors"

var (
	ErrOccupied    = errors.New("tile occupied")
	ErrNotFound    = errors.New("no machine at tile")
	ErrUnknownType = errors.New("unknown machine type")
)
