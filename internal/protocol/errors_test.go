package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := Errorf(CodeHashMismatch, "hash://sha256/aa", "content hashes to %s", "bb")
	assert.Equal(t, "HASH_MISMATCH: content hashes to bb (uri=hash://sha256/aa)", err.Error())

	bare := Errorf(CodeBackendFault, "", "connection refused")
	assert.Equal(t, "BACKEND_FAULT: connection refused", bare.Error())
}

func TestCodeOfWrappedError(t *testing.T) {
	inner := NotFound("mutable://open/x")
	wrapped := fmt.Errorf("read path: %w", inner)

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsRejection(wrapped))
	assert.False(t, IsFault(wrapped))
}

func TestRejectionClass(t *testing.T) {
	rejections := []Code{
		CodeValidationRejected, CodeUnknownProgram, CodeMalformedURI,
		CodeHashMismatch, CodeUnsupportedAlgorithm, CodeImmutableConflict,
		CodeBadSignature, CodeEnvelopeRejected,
	}
	for _, code := range rejections {
		err := Errorf(code, "a://b/c", "refused")
		assert.True(t, IsRejection(err), "code %s", code)
		assert.False(t, IsFault(err), "code %s", code)
	}
}

func TestFaultWrapping(t *testing.T) {
	raw := errors.New("connection reset")
	fault := Fault("a://b/c", raw)

	require.Equal(t, CodeBackendFault, fault.Code)
	assert.True(t, IsFault(fault))
	assert.ErrorIs(t, fault, raw)
}

func TestFaultPassesThroughTaggedErrors(t *testing.T) {
	// Wrapping an already-tagged error must not re-code it: a not-found
	// crossing a combinator boundary stays a not-found.
	nf := NotFound("a://b/c")
	assert.Same(t, nf, Fault("a://b/c", nf))

	wrapped := fmt.Errorf("chain: %w", nf)
	assert.Equal(t, CodeNotFound, Fault("a://b/c", wrapped).Code)
}
