package sessions

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is returned for unknown users, wrong passwords and unknown or expired tokens
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful login
type Session struct {
	Privileges int    // Privilege level of the user (positive)
	Token      string // 6-digit session token
}

// IDirectory manages user records and session tokens on the cache store
type IDirectory interface {
	// Register creates a user record. It returns false if the username is already taken.
	// Without WithPrivilege the user gets a random privilege level between 1 and MaxPrivilege.
	Register(ctx context.Context, username, password, fullName string, opts ...RegisterOption) (created bool, err error)

	// Login checks the password and issues a new session token that is valid for the token TTL.
	// It returns ErrInvalidCredentials if the user does not exist or the password does not match.
	Login(ctx context.Context, username, password string) (session Session, err error)

	// LoginByToken returns the current privilege level of the token's owner.
	// It returns ErrInvalidCredentials if the token was never issued or has expired.
	// The token lifetime is not extended.
	LoginByToken(ctx context.Context, token string) (privileges int, err error)

	// Logout invalidates a token. It returns ErrInvalidCredentials if the token is unknown.
	Logout(ctx context.Context, token string) (err error)
}

// RegisterOption customizes a new user record
type RegisterOption func(*registerOptions)

type registerOptions struct {
	privileges int
}

// WithPrivilege sets the privilege level of a new user instead of choosing a random one
func WithPrivilege(level int) RegisterOption {
	return func(o *registerOptions) {
		o.privileges = level
	}
}
