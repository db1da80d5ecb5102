package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string)  { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)    { Error(c, http.StatusNotFound, msg) }
func TooManyRequests(c *gin.Context)         { Error(c, http.StatusTooManyRequests, "too many requests") }
func Internal(c *gin.Context, msg string)    { Error(c, http.StatusInternalServerError, msg) }
func BadGateway(c *gin.Context, msg string)  { Error(c, http.StatusBadGateway, msg) }
func Unavailable(c *gin.Context, msg string) { Error(c, http.StatusServiceUnavailable, msg) }
