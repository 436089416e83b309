package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
	"github.com/opencarelabs/clinicore/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrEmbeddingDim):
		response.Error(c, http.StatusBadRequest, errcode.ErrEmbeddingDim, "embedding dimension mismatch")
	case errors.Is(err, ai.ErrBadOutput):
		response.Error(c, http.StatusBadGateway, errcode.ErrAIBadOutput, "model output failed validation")
	case errors.Is(err, ai.ErrRejected):
		response.Error(c, http.StatusBadGateway, errcode.ErrAIRejected, "model provider rejected the request")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, errcode.ErrAIUnavailable, "model provider unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
