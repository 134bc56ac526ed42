package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping with AppError
	appErr := New(ErrCodeFetchFailed, "failed to fetch pages", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, appErr)
	assert.Equal(t, originalErr, errors.Unwrap(appErr))
	assert.True(t, errors.Is(appErr, originalErr))
}

func TestAppError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      New(ErrCodeEmptyURLList, "url list is empty", nil),
			expected: "[ERR_401_EMPTY_URL_LIST] url list is empty",
		},
		{
			name:     "with cause",
			err:      New(ErrCodeStoreFailed, "failed to write vectors", errors.New("unauthenticated")),
			expected: "[ERR_303_STORE_FAILED] failed to write vectors: unauthenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Is_MatchesSentinelThroughWrapping(t *testing.T) {
	// Given: a sentinel wrapped by fmt.Errorf
	err := fmt.Errorf("answer: %w", ErrNotIndexed)

	// Then: errors.Is finds it by code
	assert.True(t, errors.Is(err, ErrNotIndexed))
	assert.False(t, errors.Is(err, ErrNoAnswer))
}

func TestAppError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeFetchFailed, CategoryExternal},
		{ErrCodeModelFailed, CategoryExternal},
		{ErrCodeEmptyURLList, CategoryInput},
		{ErrCodeNotIndexed, CategoryInput},
		{ErrCodeNoAnswer, CategoryInternal},
		{"bad", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.wantCategory, New(tt.code, "x", nil).Category)
		})
	}
}

func TestWrap_NilStaysNil(t *testing.T) {
	assert.NoError(t, Wrap(ErrCodeInternal, "x", nil))
}

func TestGetCode_FindsCodeInChain(t *testing.T) {
	err := fmt.Errorf("index: %w", New(ErrCodeEmbeddingFailed, "embed", nil))

	assert.Equal(t, ErrCodeEmbeddingFailed, GetCode(err))
	assert.Equal(t, CategoryExternal, GetCategory(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestReason_StripsCode(t *testing.T) {
	err := New(ErrCodeFetchFailed, "failed to fetch pages", errors.New("404 Not Found"))

	assert.Equal(t, "failed to fetch pages: 404 Not Found", Reason(err))
	assert.Equal(t, "plain", Reason(errors.New("plain")))
	assert.Equal(t, "", Reason(nil))
}
