package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCodeErrorIs(t *testing.T) {
	wrapped := pkgerrors.Wrap(ErrNotFriends, "send message")
	assert.True(t, errors.Is(wrapped, ErrNotFriends))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	detailed := ErrNotFriends.WithDetail("sender=1 recipient=2")
	assert.True(t, errors.Is(detailed, ErrNotFriends), "detail does not change identity")
}

func TestWithDetailCopies(t *testing.T) {
	d := ErrNotFound.WithDetail("id=7")
	assert.Empty(t, ErrNotFound.Detail, "sentinel must stay pristine")
	assert.Contains(t, d.Error(), "id=7")
}

func TestWrapMsgFormatsPairs(t *testing.T) {
	err := ErrNoSuchRequest.WrapMsg("accept", "requester", 3, "recipient", 9)
	assert.True(t, errors.Is(err, ErrNoSuchRequest))
	assert.Contains(t, err.Error(), "accept requester=3 recipient=9")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrTokenMissing, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{ErrAlreadyFriends, http.StatusConflict},
		{ErrDuplicateReq, http.StatusConflict},
		{ErrSelfRequest, http.StatusBadRequest},
		{ErrNotFriends, http.StatusBadRequest},
		{ErrNoSuchRequest, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrInfra, http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
		{pkgerrors.Wrap(ErrNotFound, "user lookup"), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestAsCodeNormalizes(t *testing.T) {
	ce := AsCode(fmt.Errorf("driver exploded"))
	assert.Equal(t, ErrInfra.Code, ce.Code)

	ce = AsCode(pkgerrors.Wrap(ErrAlreadyFriends, "accept"))
	assert.Equal(t, ErrAlreadyFriends.Code, ce.Code)
}
