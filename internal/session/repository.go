package session

import "context"

// Repository persists session records under a fixed key. Load returns
// serviceerr.ErrNotFound when no record exists. Deleting a missing record
// is not an error.
type Repository interface {
	Load(ctx context.Context, key string) (State, error)
	Save(ctx context.Context, key string, state State) error
	Delete(ctx context.Context, key string) error
}

// Exchanger obtains token pairs from the identity provider.
type Exchanger interface {
	GetAccess(ctx context.Context, creds Credentials) (TokenResponse, error)
	GetRefresh(ctx context.Context, refreshToken string) (TokenResponse, error)
}

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// Navigator moves the application to another route.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// Abortable is an in-flight request that can be cancelled before it is sent.
type Abortable interface {
	Abort()
}
