package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"precondition", NewPreconditionError("pick a destination"), KindPrecondition},
		{"wrapped app error", fmt.Errorf("submit: %w", NewMissingIdentifierError("no id")), KindMissingIdentifier},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped cancel", fmt.Errorf("get status: %w", context.Canceled), KindTimeout},
		{"unavailable", ErrUnavailable, KindUnavailable},
		{"plain", errors.New("boom"), KindBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := NewMissingIdentifierError("booking created without an id")
	assert.ErrorIs(t, err, ErrMissingIdentifier)
	assert.Contains(t, err.Error(), "booking created without an id")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "server says no", UserMessage(NewBackendError("server says no", nil), "generic"))
	assert.Equal(t, "generic", UserMessage(errors.New("raw"), "generic"))
}
