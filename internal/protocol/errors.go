package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates a received line is not a JSON object.
	ErrMalformed = errors.New("malformed message")
	// ErrMissingType indicates a received object has no type discriminant.
	ErrMissingType = errors.New("missing message type")
	// ErrUnknownType indicates a received object carries an unrecognised type.
	ErrUnknownType = errors.New("unknown message type")
)

// ProtocolError is returned when a received line cannot be decoded.
type ProtocolError struct {
	Line string
	Type string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("protocol: %v %q", e.Err, e.Type)
	}
	return fmt.Sprintf("protocol: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// EncodingError is returned when an outgoing message cannot be serialised.
type EncodingError struct {
	Type string
	Err  error
}

func (e *EncodingError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("protocol: encode initial menu: %v", e.Err)
	}
	return fmt.Sprintf("protocol: encode %s: %v", e.Type, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
