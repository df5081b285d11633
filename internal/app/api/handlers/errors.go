package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/response"
)

// ErrorBody is the data of every failed envelope.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// respondError writes the envelope for err. Server-side failures are logged
// with the request logger; client errors are not.
func respondError(c *gin.Context, log *zap.SugaredLogger, err error) {
	code := apperr.Code(err)
	if !apperr.IsClientError(err) {
		logctx.FromGin(c, log).Errorw("request failed", "path", c.FullPath(), "err", err)
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, response.ErrorT(code, &ErrorBody{Error: err.Error()}))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeBadRequest, &ErrorBody{Error: msg}))
}
