package api

import (
	"errors"
	"fmt"
)

// Kind classifies why a backend call failed.
type Kind string

const (
	// KindNetwork means no usable response arrived.
	KindNetwork Kind = "network"
	// KindProtocol means the response was not a success envelope.
	KindProtocol Kind = "protocol"
)

const (
	MessageLoadFailed      = "Fehler beim Laden"
	MessageInvalidResponse = "Ungültige Antwort vom Server"
	messageNetworkFormat   = "Netzwerkfehler: %v"
)

// Error is returned by every Client operation. Message is meant for users.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Op         string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func networkError(op string, err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf(messageNetworkFormat, err),
		Op:      op,
		Err:     err,
	}
}

func protocolError(op string, status int, message string, err error) *Error {
	if message == "" {
		message = MessageLoadFailed
	}
	return &Error{
		Kind:       KindProtocol,
		Message:    message,
		StatusCode: status,
		Op:         op,
		Err:        err,
	}
}

// Message extracts the user-facing text of err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}
