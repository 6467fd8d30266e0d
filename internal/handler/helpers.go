package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/pkg/errcode"
	appErr "github.com/askbook/askbook/internal/pkg/errors"
	"github.com/askbook/askbook/internal/pkg/logutil"
	"github.com/askbook/askbook/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetHeader("X-User-Id")
}

func handleError(c *gin.Context, err error) {
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	switch {
	case err == nil:
		return
	case appErr.IsInvalid(err):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case appErr.IsNotFound(err):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
