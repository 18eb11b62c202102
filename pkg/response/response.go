package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created sends a 201 with the created resource
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. Any non-nil cause is attached to the gin
// context for the request logger and never sent to the client.
func Error(c *gin.Context, code int, message string, causes ...error) {
	for _, err := range causes {
		if err != nil {
			_ = c.Error(err)
		}
	}
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string, causes ...error) {
	Error(c, http.StatusBadRequest, message, causes...)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string, causes ...error) {
	Error(c, http.StatusNotFound, message, causes...)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string, causes ...error) {
	Error(c, http.StatusInternalServerError, message, causes...)
}
