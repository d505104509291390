package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/syncd/internal/syncd"
)

func TestWriteErrorMapsCodeToStatusAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	writeError(ctx, syncd.NewError(syncd.ErrCodeConflict, "file already exists"))

	require.Equal(t, http.StatusConflict, w.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, syncd.ErrCodeConflict, body.Error.Code)
	require.Equal(t, "file already exists", body.Error.Message)
}

func TestWriteErrorDefaultsUntypedToInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	writeError(ctx, errUnexpected{})

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

type errUnexpected struct{}

func (errUnexpected) Error() string { return "boom" }
