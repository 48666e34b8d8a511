package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{401, Unauthorized},
		{403, PermissionDenied},
		{404, NotFound},
		{409, Conflict},
		{502, TemporaryServer},
		{503, TemporaryServer},
		{504, TemporaryServer},
		{500, Server},
		{418, Http},
		{200, Http},
	}
	for _, tc := range cases {
		got := FromHTTPStatus(tc.status, "detail")
		require.Equal(t, tc.want, got.Kind, "status %d", tc.status)
		require.Equal(t, tc.status, got.HTTPStatus)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(Integrity, "mac mismatch", cause)

	require.ErrorIs(t, err, cause)
	require.True(t, Is(err, Integrity))
	require.False(t, Is(err, Conflict))
}

func TestIsThroughFmtWrap(t *testing.T) {
	inner := New(Conflict, "stale etag")
	outer := errors.New("outer context")
	_ = outer

	wrapped := fmt.Errorf("batch rejected: %w", inner)
	require.True(t, Is(wrapped, Conflict))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "IntegrityError", Integrity.String())
	require.Equal(t, "ProgrammingError", Programming.String())
	require.Equal(t, "UnknownError", Unknown.String())
}
