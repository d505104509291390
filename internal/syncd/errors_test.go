package syncd

import (
	"net/http"
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeInvalidKey:   http.StatusUnauthorized,
		ErrCodeKeyRevoked:   http.StatusUnauthorized,
		ErrCodeForbidden:    http.StatusForbidden,
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeRateLimited:  http.StatusTooManyRequests,
		ErrCodeInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		require.Equal(t, status, code.HTTPStatus(), "code %s", code)
	}
}

func TestIsCodeAndAsErrorThroughWrapping(t *testing.T) {
	base := NewError(ErrCodeConflict, "file already exists")
	wrapped := errors.Wrap(base, "create file")

	require.True(t, IsCode(wrapped, ErrCodeConflict))
	require.False(t, IsCode(wrapped, ErrCodeNotFound))

	typed, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, ErrCodeConflict, typed.Code)
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
	require.Equal(t, ErrCodeValidation, CodeOf(NewError(ErrCodeValidation, "bad")))
}

func TestNilErrorMessage(t *testing.T) {
	var e *Error
	require.Equal(t, "syncd error: <nil>", e.Error())
}
