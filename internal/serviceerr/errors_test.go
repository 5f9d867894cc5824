package serviceerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/session-client/internal/serviceerr"
)

func TestErrors_AreDistinct(t *testing.T) {
	all := []error{
		serviceerr.ErrNotFound,
		serviceerr.ErrExchangeFailed,
		serviceerr.ErrDecodeFailed,
		serviceerr.ErrNoRefreshToken,
		serviceerr.ErrSessionExpired,
		serviceerr.ErrUnauthenticated,
		serviceerr.ErrRequestAborted,
	}

	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b, "%v must not match %v", a, b)
		}
	}
}

func TestErrors_SurviveWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "fmt wrapped exchange failure",
			err:  fmt.Errorf("getting access: %w", serviceerr.ErrExchangeFailed),
			want: serviceerr.ErrExchangeFailed,
		},
		{
			name: "joined decode failure",
			err:  errors.Join(serviceerr.ErrDecodeFailed, errors.New("square/go-jose: compact JWS format must have three parts")),
			want: serviceerr.ErrDecodeFailed,
		},
		{
			name: "aborted because the session expired",
			err:  errors.Join(serviceerr.ErrRequestAborted, serviceerr.ErrSessionExpired),
			want: serviceerr.ErrSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
		})
	}
}
