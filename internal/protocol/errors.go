package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Match routing/state.
	ErrMatchFull = "E_MATCH_FULL"
	ErrMatchOver = "E_MATCH_OVER"

	// Command layer.
	ErrNotYourTurn = "E_NOT_YOUR_TURN"
	ErrBusy        = "E_BUSY"
	ErrBlocked     = "E_BLOCKED"
	ErrAtLimit     = "E_AT_LIMIT"
	ErrBadCommand  = "E_BAD_COMMAND"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrMatchFull:       {},
	ErrMatchOver:       {},
	ErrNotYourTurn:     {},
	ErrBusy:            {},
	ErrBlocked:         {},
	ErrAtLimit:         {},
	ErrBadCommand:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
