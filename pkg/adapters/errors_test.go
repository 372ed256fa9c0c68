package adapters

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
		message  string
	}{
		{
			name:     "connection",
			err:      ConnectionError("open bulk", "random_bit", ErrTableNotFound),
			sentinel: ErrConnection,
			kind:     KindConnection,
			message:  "open bulk random_bit: connection error: table does not exist",
		},
		{
			name:     "encoding",
			err:      EncodingError("send", "t", errors.New("row has 2 values")),
			sentinel: ErrEncoding,
			kind:     KindEncoding,
			message:  "send t: encoding error: row has 2 values",
		},
		{
			name:     "transport",
			err:      TransportError("finalize", "", io.ErrUnexpectedEOF),
			sentinel: ErrTransport,
			kind:     KindTransport,
			message:  "finalize: transport error: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))

			wrapped := fmt.Errorf("case failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := TransportError("send", "t", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrEncoding)

	assert.Equal(t, ErrorKind(0), KindOf(io.EOF))
	assert.Equal(t, "error kind 9", ErrorKind(9).String())
}

func TestErrorWithoutCause(t *testing.T) {
	err := &Error{Kind: KindEncoding, Op: "send"}
	assert.Equal(t, "send: encoding error", err.Error())
	assert.ErrorIs(t, err, ErrEncoding)
}
