package session

import "time"

// Instant is an absolute point in time in epoch milliseconds. The zero value
// means the instant is absent.
type Instant int64

func InstantOf(t time.Time) Instant {
	if t.IsZero() {
		return 0
	}
	return Instant(t.UnixMilli())
}

func (i Instant) IsZero() bool { return i == 0 }

func (i Instant) Time() time.Time {
	if i == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(i))
}

// Until returns the time left between now and the instant.
func (i Instant) Until(now time.Time) time.Duration {
	return time.Duration(int64(i)-now.UnixMilli()) * time.Millisecond
}

// Identity describes the authenticated user. All fields are empty when the
// session is not authenticated.
type Identity struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Groups   []string `json:"groups"`
}

// State is the complete session snapshot. It is always replaced as a whole:
// either every field has the authenticated shape or every field is zero.
type State struct {
	Authenticated bool `json:"auth"`
	Identity

	AccessToken  string  `json:"access_token"`
	AccessExpiry Instant `json:"access_exp"`

	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"` // informational only

	RefreshToken  string  `json:"refresh_token"`
	RefreshExpiry Instant `json:"refresh_exp"`
}

// Credentials are exchanged for a token pair at login.
type Credentials struct {
	Username string
	Password string
}

// TokenResponse is the token endpoint payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthStatus int

const (
	Unauthenticated AuthStatus = iota
	Authenticated
)

func (s AuthStatus) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Outcome reports which branch a freshness check took.
type Outcome int

const (
	// Fresh means neither token has expired.
	Fresh Outcome = iota
	// RefreshTimeout means the refresh token has expired or is missing.
	RefreshTimeout
	// InactivityTimeout means the access token expired while the refresh
	// window was still open.
	InactivityTimeout
)

func (o Outcome) String() string {
	switch o {
	case RefreshTimeout:
		return "refresh_timeout"
	case InactivityTimeout:
		return "inactivity_timeout"
	default:
		return "fresh"
	}
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)
