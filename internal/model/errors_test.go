package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := InsufficientStock("Arduino Uno R3", 6, 5)
	assert.Equal(t, "INSUFFICIENT_STOCK: requested 6, only 5 in stock (Arduino Uno R3)", err.Error())
	assert.Equal(t, "6", err.Details["requested"])
	assert.Equal(t, "5", err.Details["available"])
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := SyncFailed("gist", "push", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("cart add: %w", NotFound("c-1", "component not found"))

	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestPredicates(t *testing.T) {
	tests := map[string]struct {
		err  error
		pred func(error) bool
	}{
		"validation":    {Validation("x", "bad"), IsValidation},
		"stock":         {InsufficientStock("x", 2, 1), IsInsufficientStock},
		"checkout":      {CheckoutFailed("x", errors.New("boom")), IsCheckoutFailed},
		"import format": {ImportFormat("file.json", errors.New("eof")), IsImportFormat},
		"sync":          {SyncFailed("redis", "pull", errors.New("timeout")), IsSync},
		"not found":     {NotFound("x", "missing"), IsNotFound},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
		})
	}
}
