package service

import (
	"context"
	stderrors "errors"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"linkchat/module/user/model"
	"linkchat/tools/errs"
	"linkchat/tools/security"
)

// UserFinder is the slice of the user store the authenticator needs.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Authenticator resolves an opaque bearer token to an identity.
// Real-time and HTTP surfaces both consume it through this interface.
type Authenticator struct {
	opts  security.Options
	users UserFinder
}

func NewAuthenticator(opts security.Options, users UserFinder) *Authenticator {
	return &Authenticator{opts: opts, users: users}
}

// Authenticate verifies the token signature and resolves its subject
// handle to a stored user. Any failure collapses to a token error so the
// caller cannot distinguish bad signature from unknown identity.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, errs.ErrTokenMissing
	}
	sub, err := security.Verify(a.opts, token)
	if err != nil {
		if stderrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errs.ErrTokenExpired
		}
		return nil, errs.ErrTokenInvalid.WithDetail(err.Error())
	}
	u, err := a.users.FindByUsername(ctx, sub)
	if err != nil {
		return nil, errs.ErrTokenInvalid.WithDetail("unknown subject")
	}
	return u, nil
}

// IssueToken signs a bearer token for the given handle.
func (a *Authenticator) IssueToken(username string) (string, error) {
	token, _, err := security.Generate(a.opts, username)
	return token, err
}
