package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Policy(ReasonLimitReached, "x"), http.StatusBadRequest},
		{Conflict(ReasonBorrowed, "x"), http.StatusBadRequest},
		{Forbidden("x"), http.StatusForbidden},
		{Unauthorized("x"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
		{Internal(sql.ErrConnDone), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestInternalKeepsCauseButHidesMessage(t *testing.T) {
	err := Internal(fmt.Errorf("select copies: %w", sql.ErrTxDone))

	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "internal error", BodyFrom(err).Error.Message)
}

func TestInternalPassesModelErrorsThrough(t *testing.T) {
	orig := Policy(ReasonUnavailable, "copy is not available")
	wrapped := fmt.Errorf("borrow: %w", orig)

	assert.Same(t, orig, errors.Unwrap(wrapped))
	assert.Equal(t, wrapped, Internal(wrapped))
	assert.Equal(t, ReasonUnavailable, ReasonOf(wrapped))
	assert.Equal(t, ReasonUnavailable, BodyFrom(wrapped).Error.Reason)
}
