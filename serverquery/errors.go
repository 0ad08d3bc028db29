package serverquery

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ServerQuery session.
var (
	// ErrClosed fails every command still pending when the session closes.
	ErrClosed = errors.New("connection closed before receiving data")

	// ErrNotConnected indicates an operation was attempted without a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates connect was called while connected or
	// while a handshake is in progress.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrQueueUnderflow indicates a response arrived with no pending command.
	// Correlation is lost from this point on, so the session is closed.
	ErrQueueUnderflow = errors.New("response received with no pending command")
)

// HandshakeError is returned by Connect when the server did not identify
// itself as a ServerQuery server.
type HandshakeError struct {
	Banner string
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed: missing %q banner, got %q", BannerMarker, e.Banner)
}

// TransportError represents a socket-level failure.
type TransportError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("transport %s", e.Op)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError creates a new transport error.
func NewTransportError(op string, cause error) error {
	return &TransportError{Op: op, Cause: cause}
}

// StatusError is returned for a command whose status line was not
// "error id=0 msg=ok". It carries the whole parsed response, so data
// records sent together with the failing status are not lost.
type StatusError struct {
	Response *Response
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	s := e.Response.Status
	if s.Extra != "" {
		return fmt.Sprintf("query error %d: %s (%s)", s.Code, s.Message, s.Extra)
	}
	return fmt.Sprintf("query error %d: %s", s.Code, s.Message)
}

// Code returns the numeric status code.
func (e *StatusError) Code() int {
	return e.Response.Status.Code
}

// IsParseError reports whether the status line itself could not be parsed.
func (e *StatusError) IsParseError() bool {
	return e.Response.Status.Code == ParseErrorCode
}
