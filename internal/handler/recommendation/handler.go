package recommendation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/service/recommendation"
)

type Handler struct {
	service *recommendation.Service
}

func NewHandler(service *recommendation.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/appointments/:id/recommendations", h.CreateRecommendation)
	r.GET("/appointments/:id/recommendations", h.GetForAppointment)
	r.GET("/recommendations/:recommendationId", h.GetRecommendation)
}

func (h *Handler) CreateRecommendation(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req recommendation.CreateRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.Create(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(rec))
}

func (h *Handler) GetForAppointment(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.GetByAppointment(c.Request.Context(), owner, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}

func (h *Handler) GetRecommendation(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "recommendationId")
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), owner, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}
