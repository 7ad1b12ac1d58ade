package protocol

import "errors"

var (
	ErrMalformedEnvelope = errors.New("malformed message envelope")
	ErrMissingType       = errors.New("message missing type field")
	ErrMissingData       = errors.New("message missing data object")
	ErrUnknownType       = errors.New("unknown message type")
	ErrNonFiniteValue    = errors.New("payload contains non-finite number")
	ErrInvalidState      = errors.New("invalid network state")
)
