package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// response mirrors portal.Envelope on the server side.
type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Code: http.StatusOK, Message: "success", Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, response{Code: http.StatusCreated, Message: "created", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, response{Code: code, Message: message})
}

func notFound(c *gin.Context, what string) {
	fail(c, http.StatusNotFound, what+" not found")
}
