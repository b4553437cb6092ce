package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "fetch error: in-page fetch returned ERROR", New(ErrorTypeFetch, "in-page fetch returned ERROR").Error())

	tooSmall := &Error{Type: ErrorTypeValidation, Message: "payload below floor", Code: 1200}
	assert.Equal(t, "validation error (code 1200): payload below floor", tooSmall.Error())

	wrapped := Wrap(ErrorTypeEvaluation, "identify script failed", stderrors.New("context canceled"))
	assert.Equal(t, "evaluation error: identify script failed: context canceled", wrapped.Error())
}

func TestTypeOfFollowsChain(t *testing.T) {
	base := New(ErrorTypeStorage, "disk full")
	err := fmt.Errorf("saving frame: %w", base)

	assert.Equal(t, ErrorTypeStorage, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.True(t, stderrors.Is(Wrap(ErrorTypeFetch, "x", base), base))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrorTypeEvaluation, true},
		{ErrorTypeFetch, true},
		{ErrorTypeValidation, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeAuth, false},
		{ErrorTypeConfig, false},
		{ErrorTypeStorage, false},
		{ErrorTypeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errType))
		})
	}

	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(fmt.Errorf("wrap: %w", New(ErrorTypeFetch, "x"))))
}
