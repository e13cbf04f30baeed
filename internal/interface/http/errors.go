package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/internal/application"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/response"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

const msgInternal = "internal server error"

// writeError maps application errors to HTTP responses. Anything unknown is
// logged in full and reported as a generic 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *application.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error(c, http.StatusBadRequest, ve.Message, ve.Details)
	case errors.Is(err, application.ErrEmailTaken):
		response.Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, application.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, err.Error(), nil)
	default:
		if logger != nil {
			helpers.LogError(logger, "request failed", err, logrus.Fields{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(response.RequestIDKey),
			})
		}
		response.Error(c, http.StatusInternalServerError, msgInternal, nil)
	}
}

// bindError reports a body or query that could not be decoded.
func bindError(c *gin.Context, err error) {
	details := validation.ToDetails(err)
	msg := "invalid payload"
	if first := validation.FirstMessage(details); first != "" {
		msg += ": " + first
	}
	response.Error(c, http.StatusBadRequest, msg, details)
}
