package group

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/group"
)

type Handler struct {
	service *group.Service
}

func NewHandler(service *group.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	groups := r.Group("/groups")
	{
		groups.POST("", h.CreateGroup)
		groups.GET("", h.ListGroups)
		groups.GET("/:id", h.GetGroup)
		groups.PATCH("/:id/goals", h.UpdateGoals)
		groups.DELETE("/:id", h.DeleteGroup)
	}
}

type createGroupResponse struct {
	Group  *model.Group  `json:"group"`
	Report *model.Report `json:"report"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	var req model.CreateGroupRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	g, report, err := h.service.Create(c.Request.Context(), owner, &req)
	if err != nil {
		handler.Cascade(c, http.StatusCreated, report, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(createGroupResponse{Group: g, Report: report}))
}

func (h *Handler) ListGroups(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	groups, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(groups))
}

func (h *Handler) GetGroup(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	g, err := h.service.Get(c.Request.Context(), owner, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(g))
}

func (h *Handler) UpdateGoals(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateGoalsRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	g, err := h.service.UpdateGoals(c.Request.Context(), owner, id, req.Goals)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(g))
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	report, err := h.service.Delete(c.Request.Context(), owner, id)
	handler.Cascade(c, http.StatusOK, report, err)
}
