package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneMatchesOriginal(t *testing.T) {
	err := Clone(ErrInvalidDate, "invalid date \"2024-09-15\"")
	require.True(t, stderrors.Is(err, ErrInvalidDate))
	require.False(t, stderrors.Is(err, ErrInvalidRange))

	wrapped := fmt.Errorf("parse start: %w", err)
	require.True(t, stderrors.Is(wrapped, ErrInvalidDate))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to load run")
	require.True(t, stderrors.Is(err, cause))
	require.True(t, stderrors.Is(err, ErrInternal))
	require.Contains(t, err.Error(), "connection reset")
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(fmt.Errorf("outer: %w", ErrNotFound))
	require.Equal(t, http.StatusNotFound, appErr.Status)

	appErr = FromError(stderrors.New("plain"))
	require.Equal(t, ErrInternal.Code, appErr.Code)
	require.Equal(t, http.StatusInternalServerError, appErr.Status)
}
