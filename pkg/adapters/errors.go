package adapters

import (
	"errors"
	"fmt"
)

// ErrorKind classifies loader failures.
type ErrorKind int

const (
	// KindConnection - address resolution, login, TLS, unusable connection
	// or missing table
	KindConnection ErrorKind = iota + 1

	// KindEncoding - row shape or value type does not match the table
	KindEncoding

	// KindTransport - socket or server failure while data is in flight
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindEncoding:
		return "encoding error"
	case KindTransport:
		return "transport error"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Sentinels for errors.Is.
var (
	ErrConnection = errors.New("connection error")
	ErrEncoding   = errors.New("encoding error")
	ErrTransport  = errors.New("transport error")

	// ErrSessionClosed - Send or Finalize on a finalized or aborted session
	ErrSessionClosed = errors.New("bulk session is closed")

	// ErrSessionActive - the connection is busy with an open bulk session
	ErrSessionActive = errors.New("bulk session is active on this connection")

	// ErrNotConnected - the loader has no usable connection
	ErrNotConnected = errors.New("not connected")

	// ErrTableNotFound - the target table does not exist
	ErrTableNotFound = errors.New("table does not exist")
)

// Error - loader failure with its kind, operation and table.
// Errors are never retried; they travel to the caller unchanged.
type Error struct {
	Kind  ErrorKind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Table != "" {
		msg += " " + e.Table
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindEncoding:
		return ErrEncoding
	default:
		return ErrTransport
	}
}

// ConnectionError wraps err as a KindConnection failure.
func ConnectionError(op, table string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Table: table, Err: err}
}

// EncodingError wraps err as a KindEncoding failure.
func EncodingError(op, table string, err error) error {
	return &Error{Kind: KindEncoding, Op: op, Table: table, Err: err}
}

// TransportError wraps err as a KindTransport failure.
func TransportError(op, table string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Table: table, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
