package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "failed")
	require.Equal(t, "failed: boom", err.Error())
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(stdErrors.New("oops"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
}

func TestFromErrorKeepsAppErrors(t *testing.T) {
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	wrapped := fmt.Errorf("handler: %w", ErrDirectoryUnavailable)
	require.Same(t, ErrDirectoryUnavailable, FromError(wrapped))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	raw := stdErrors.New("raw")
	out := FromError(raw)

	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.ErrorIs(t, out, raw)
	require.Nil(t, FromError(nil))
}
