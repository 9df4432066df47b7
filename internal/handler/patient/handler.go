package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/patient"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)

		patients.PUT("/:id/group", h.SetGroup)
		patients.PATCH("/:id/goals", h.UpdateGoals)
		patients.PATCH("/:id/goal-progress", h.UpdateGoalProgress)
		patients.PATCH("/:id/goal-progress/history", h.AddGoalHistory)
		patients.POST("/:id/visit", h.AddVisitHistory)
		patients.POST("/:id/materials", h.AddMaterial)
		patients.GET("/:id/materials", h.ListMaterials)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	var req model.CreatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), owner, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPatients(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	patients, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) GetPatient(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), owner, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.UpdateProfile(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	report, err := h.service.Delete(c.Request.Context(), owner, id)
	handler.Cascade(c, http.StatusOK, report, err)
}

func (h *Handler) SetGroup(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.SetGroupRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	report, err := h.service.SetGroup(c.Request.Context(), owner, id, &req)
	handler.Cascade(c, http.StatusOK, report, err)
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

	goals, err := h.service.SetGoals(c.Request.Context(), owner, id, req.Goals)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(goals))
}

type goalProgressRequest struct {
	GoalProgress []model.GoalProgress `json:"goal_progress" binding:"required"`
}

func (h *Handler) UpdateGoalProgress(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req goalProgressRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	progress, err := h.service.SetGoalProgress(c.Request.Context(), owner, id, req.GoalProgress)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(progress))
}

func (h *Handler) AddGoalHistory(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.GoalHistoryRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	progress, err := h.service.AddGoalHistory(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(progress))
}

func (h *Handler) AddVisitHistory(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.VisitRowRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.AddVisitHistory(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) AddMaterial(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.MaterialRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	m, err := h.service.AddMaterial(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) ListMaterials(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	appointmentID, ok := handler.QueryID(c, "appointment")
	if !ok {
		return
	}
	activityID, ok := handler.QueryID(c, "activity")
	if !ok {
		return
	}

	materials, err := h.service.ListMaterials(c.Request.Context(), owner, id, appointmentID, activityID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(materials))
}
