// Package response renders the JSON envelope shared by all API handlers.
// Dashboard clients branch on the code field: zero means success, anything
// else repeats the HTTP status so errors survive proxies that rewrite it.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success replies 200 with the payload wrapped in the envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Message: "success", Data: data})
}

// Error replies with the given HTTP status and message.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Code: status, Message: message})
}

// BadRequest rejects a malformed request.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound reports a missing resource.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError reports a server-side failure.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
