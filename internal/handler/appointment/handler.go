package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/appointment"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.POST("/bulk", h.CreateAppointments)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

type createAppointmentResponse struct {
	Appointment *model.Appointment `json:"appointment"`
	Report      *model.Report      `json:"report"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	appt, report, err := h.service.Create(c.Request.Context(), owner, &req)
	if err != nil {
		handler.Cascade(c, http.StatusCreated, report, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(createAppointmentResponse{Appointment: appt, Report: report}))
}

type bulkRequest struct {
	Appointments []*model.CreateAppointmentRequest `json:"appointments" binding:"required,min=1,dive"`
}

func (h *Handler) CreateAppointments(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	var req bulkRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	created, err := h.service.CreateBulk(c.Request.Context(), owner, req.Appointments)
	if err != nil {
		_ = c.Error(err)
		body := handler.ErrorBody(err)
		body.Data = created
		c.JSON(handler.Status(err), body)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	appts, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appts))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	appt, err := h.service.Get(c.Request.Context(), owner, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	appt, err := h.service.Update(c.Request.Context(), owner, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	owner, _ := middleware.OwnerID(c)
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	report, err := h.service.Delete(c.Request.Context(), owner, id)
	handler.Cascade(c, http.StatusOK, report, err)
}
