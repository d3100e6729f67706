package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("outer: %w", NewNotFound("task", nil)), CodeNotFound, http.StatusNotFound},
		{"pgx no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"unknown error", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
		{"quota", NewQuotaExceeded(3), CodeQuotaExceeded, http.StatusForbidden},
		{"provider down", NewIdentityProviderUnavailable(errors.New("dial tcp")), CodeIdentityProviderUnavailable, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestInternalErrorHidesCause(t *testing.T) {
	de := ToDomainError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorContains(t, de, "password authentication failed")
}

func TestQuotaExceededMessage(t *testing.T) {
	de := ToDomainError(NewQuotaExceeded(3))
	assert.Contains(t, de.Message, "up to 3 tasks")
	assert.Equal(t, 3, de.Details["limit"])
	assert.True(t, HasCode(de, CodeQuotaExceeded))
	assert.False(t, HasCode(errors.New("x"), CodeQuotaExceeded))
}
