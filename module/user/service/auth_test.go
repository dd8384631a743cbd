package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/module/user/model"
	"linkchat/tools/errs"
	"linkchat/tools/security"
)

type fakeFinder struct {
	users map[string]*model.User
}

func (f *fakeFinder) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

func testAuth(ttl time.Duration) (*Authenticator, security.Options) {
	opts := security.DefaultOptions([]byte("test-secret"))
	if ttl > 0 {
		opts.TTL = ttl
	}
	finder := &fakeFinder{users: map[string]*model.User{
		"sam": {ID: 1, Username: "sam"},
	}}
	return NewAuthenticator(opts, finder), opts
}

func TestAuthenticateResolvesSubject(t *testing.T) {
	auth, _ := testAuth(0)
	token, err := auth.IssueToken("sam")
	require.NoError(t, err)

	u, err := auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
}

func TestAuthenticateMissingToken(t *testing.T) {
	auth, _ := testAuth(0)
	_, err := auth.Authenticate(context.Background(), "")
	assert.True(t, errors.Is(err, errs.ErrTokenMissing))
}

func TestAuthenticateExpiredToken(t *testing.T) {
	auth, opts := testAuth(time.Millisecond)
	token, _, err := security.Generate(opts, "sam")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = auth.Authenticate(context.Background(), token)
	assert.True(t, errors.Is(err, errs.ErrTokenExpired), "expiry keeps its own code: %v", err)
	assert.False(t, errors.Is(err, errs.ErrTokenInvalid))
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	auth, opts := testAuth(0)
	token, _, err := security.Generate(opts, "ghost")
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), token)
	assert.True(t, errors.Is(err, errs.ErrTokenInvalid), "unknown identity reads as a token failure")
}
