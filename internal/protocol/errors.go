package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy   = "E_WORLD_BUSY"
	ErrRateLimited = "E_RATE_LIMITED"

	// Command layer.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrUnknownType = "E_UNKNOWN_TYPE"
	ErrOccupied    = "E_OCCUPIED"
	ErrNotFound    = "E_NOT_FOUND"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrRateLimited:     {},
	ErrBadRequest:      {},
	ErrUnknownType:     {},
	ErrOccupied:        {},
	ErrNotFound:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
