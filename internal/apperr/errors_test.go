package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := InsufficientStock("insufficient stock for %s", "Coffee")
	wrapped := fmt.Errorf("creating sale: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
	assert.Equal(t, "insufficient stock for Coffee", Message(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Reference("missing branch"), http.StatusBadRequest},
		{InsufficientStock("low"), http.StatusBadRequest},
		{InvalidTransition("cancelled -> completed"), http.StatusConflict},
		{Conflict("duplicate sku"), http.StatusConflict},
		{NotFound("sale"), http.StatusNotFound},
		{Unauthorized("token"), http.StatusUnauthorized},
		{Forbidden("role"), http.StatusForbidden},
		{Internal(errors.New("disk"), "failed"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := Internal(cause, "failed to persist sale")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to persist sale", Message(err))
	assert.Equal(t, "internal server error", Message(cause))
}
