package protocol

import "errors"

var (
	// ErrShortRead is returned when the stream closes before a full frame
	// (header or payload) could be read.
	ErrShortRead = errors.New("protocol: short read, frame truncated")

	// ErrLengthOverflow is returned when a frame header declares a payload
	// longer than MaxPayloadLen.
	ErrLengthOverflow = errors.New("protocol: payload length exceeds maximum")

	// ErrClosed is returned when the stream reaches a clean EOF exactly at a
	// frame boundary. Callers should treat this as a normal disconnect, not
	// a transport failure.
	ErrClosed = errors.New("protocol: stream closed at frame boundary")

	// ErrUnknownTag is returned by Decode when a tag byte does not belong to
	// the expected direction.
	ErrUnknownTag = errors.New("protocol: unknown tag for direction")
)
