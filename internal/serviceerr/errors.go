package serviceerr

import "errors"

var ErrNotFound = errors.New("not found")

var (
	ErrExchangeFailed  = errors.New("credential exchange failed")
	ErrDecodeFailed    = errors.New("token decode failed")
	ErrNoRefreshToken  = errors.New("no token to refresh")
	ErrSessionExpired  = errors.New("session expired")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrRequestAborted  = errors.New("request aborted")
)
