package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves the unauthenticated root endpoints.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"pong": true, "time": time.Now().UTC()},
	})
}

func (h *Handler) NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, NewErrorResponse("route not found"))
}
