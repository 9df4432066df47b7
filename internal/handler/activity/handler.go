package activity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/activity"
)

type Handler struct {
	service *activity.Service
}

func NewHandler(service *activity.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments/:id")
	{
		appointments.POST("/activity-draft", h.DraftActivity)
		appointments.POST("/generate-activity", h.GenerateActivity)
		appointments.PATCH("/activities/:activityId", h.UpdateActivity)
		appointments.DELETE("/activities/:activityId", h.DeleteActivity)
	}
	r.GET("/activities/:activityId", h.GetActivity)
}

func (h *Handler) DraftActivity(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.GenerateActivityRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	draft, err := h.service.Draft(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(draft))
}

func (h *Handler) GenerateActivity(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.GenerateActivityRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	out, err := h.service.Generate(c.Request.Context(), owner, id, &req)
	if err != nil {
		if out != nil {
			handler.Cascade(c, http.StatusCreated, out.Report, err)
			return
		}
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(out))
}

func (h *Handler) GetActivity(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "activityId")
	if !ok {
		return
	}

	act, err := h.service.Get(c.Request.Context(), owner, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(act))
}

func (h *Handler) UpdateActivity(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	appointmentID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	activityID, ok := handler.ParamID(c, "activityId")
	if !ok {
		return
	}
	var req model.UpdateActivityRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	act, err := h.service.Update(c.Request.Context(), owner, appointmentID, activityID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(act))
}

func (h *Handler) DeleteActivity(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	appointmentID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	activityID, ok := handler.ParamID(c, "activityId")
	if !ok {
		return
	}

	report, err := h.service.Delete(c.Request.Context(), owner, appointmentID, activityID)
	handler.Cascade(c, http.StatusOK, report, err)
}
