package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "client not found (NOT_FOUND)", ErrTenantNotFound.Error())

	withCause := &DomainError{Code: ErrCodeInternalError, Message: "boom", Err: errors.New("disk full")}
	assert.Equal(t, "boom (INTERNAL_ERROR): disk full", withCause.Error())
}

func TestWrap_KeepsSentinelInChain(t *testing.T) {
	cause := errors.New("GROQ_API_KEY not set")
	err := Wrap(ErrProviderUnavailable, "could not start groq, check the API key", cause)

	assert.Equal(t, ErrCodeUnavailable, err.Code)
	assert.Equal(t, "could not start groq, check the API key", err.Message)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, cause)

	noCause := Wrap(ErrUnsupportedProvider, "unsupported provider: foo", nil)
	assert.ErrorIs(t, noCause, ErrUnsupportedProvider)
}

func TestAsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("ingest: %w", ErrNoChunks)

	domainErr, ok := AsDomainError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidation, domainErr.Code)

	_, ok = AsDomainError(errors.New("plain"))
	assert.False(t, ok)
}
