package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: Validation("Please fill all fields."), want: http.StatusBadRequest},
		{name: "conflict", err: Conflict("User already exists"), want: http.StatusConflict},
		{name: "not found", err: NotFound("User not found"), want: http.StatusNotFound},
		{name: "authentication", err: Authentication("Invalid credentials"), want: http.StatusUnauthorized},
		{name: "wrapped client error", err: fmt.Errorf("login: %w", Authentication("Invalid credentials")), want: http.StatusUnauthorized},
		{name: "hashing", err: Hashing(errors.New("entropy unavailable")), want: http.StatusInternalServerError},
		{name: "issuance", err: Issuance(errors.New("no key")), want: http.StatusInternalServerError},
		{name: "plain", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "User not found", Message(NotFound("User not found")))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, DefaultMessage, Message(errors.New("")))
	assert.Contains(t, Message(Storage("create user", errors.New("db down"))), "db down")
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeHashing, Code(Hashing(errors.New("x"))))
	assert.Equal(t, CodeIssuance, Code(Issuance(errors.New("x"))))
	assert.Equal(t, CodeStorage, Code(Storage("find", errors.New("x"))))
	assert.Empty(t, Code(errors.New("x")))
	assert.Empty(t, Code(Validation("x")))
}

func TestInternalKeepsCauseHidden(t *testing.T) {
	err := Internal("token generation failed", Issuance(errors.New("no key")))

	assert.Equal(t, http.StatusInternalServerError, Status(err))
	assert.Equal(t, "token generation failed", Message(err))
	assert.Equal(t, CodeIssuance, Code(err))
}

func TestEventsCode(t *testing.T) {
	assert.Equal(t, CodeEvents, Code(Events("user.registered", errors.New("x"))))
}
