package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is one tagged wire message: {"type": "...", "data": {...}}.
// Data is nil when the message carried no data object.
type Envelope struct {
	Type string
	Data json.RawMessage
}

type wireEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type validator interface {
	Validate() error
}

// Encode wraps payload in a typed envelope. A nil payload omits the data field.
func Encode(msgType string, payload any) ([]byte, error) {
	if v, ok := payload.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
	}
	data, err := json.Marshal(wireEnvelope{Type: msgType, Data: payload})
	if err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			return nil, fmt.Errorf("encode %s: %w: %s", msgType, ErrNonFiniteValue, unsupported.Str)
		}
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return data, nil
}

// Decode splits a frame into its type and raw data. It fails when the text is
// not a JSON object or lacks a string type field.
func Decode(text []byte) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(text, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if raw == nil {
		return Envelope{}, ErrMalformedEnvelope
	}

	typeRaw, ok := raw["type"]
	if !ok {
		return Envelope{}, ErrMissingType
	}
	var msgType string
	if err := json.Unmarshal(typeRaw, &msgType); err != nil || msgType == "" {
		return Envelope{}, ErrMissingType
	}

	env := Envelope{Type: msgType}
	if data, ok := raw["data"]; ok && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		env.Data = data
	}
	return env, nil
}
