package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the current request id.
const RequestIDKey = "request_id"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func NewError(ctx *gin.Context, message string, details map[string]string) ErrorBody {
	return ErrorBody{
		Error:     message,
		Details:   details,
		RequestID: ctx.GetString(RequestIDKey),
	}
}

// Error writes an error body and aborts the handler chain.
func Error(ctx *gin.Context, status int, message string, details map[string]string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, NewError(ctx, message, details))
}

// JSON writes a success body as-is.
func JSON[T any](ctx *gin.Context, status int, data T) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, data)
}
