package rest

import (
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/syncd/internal/syncd"
	"github.com/Laisky/syncd/library/log"
)

type errorBody struct {
	Code    syncd.ErrorCode `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps a typed error to spec §7's request-path framing:
// HTTP status + {error: {code, message, details?}}.
func writeError(ctx *gin.Context, err error) {
	code := syncd.CodeOf(err)
	if code == syncd.ErrCodeInternal {
		log.Logger.Error("request failed", zap.Error(err))
	}
	ctx.AbortWithStatusJSON(code.HTTPStatus(), errorEnvelope{
		Error: errorBody{Code: code, Message: err.Error()},
	})
}
