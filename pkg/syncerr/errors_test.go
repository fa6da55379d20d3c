//go:build unit
// +build unit

package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusError_Unwrap(t *testing.T) {
	err := fmt.Errorf("requesting token: %w", &StatusError{
		Kind:       ErrAuth,
		URL:        "https://ghcr.io/token",
		StatusCode: 401,
		Body:       "unauthorized",
	})

	require.ErrorIs(t, err, ErrAuth)
	require.False(t, errors.Is(err, ErrFetch))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 401, statusErr.StatusCode)
	require.Contains(t, err.Error(), "returned status 401: unauthorized")
}
