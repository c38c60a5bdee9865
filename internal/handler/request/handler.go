package request

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/internal/handler"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	requestService "github.com/jwalitptl/bloodlink-api/internal/service/request"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/httputil"
)

type Handler struct {
	service requestService.RequestServicer
}

func NewHandler(service requestService.RequestServicer) *Handler {
	return &Handler{service: service}
}

// RegisterStaffRoutes is for hospitals and administrators.
func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	requests := r.Group("/requests")
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.GET("/:id/matches", h.ListMatches)
		requests.POST("/:id/notify", h.NotifySelected)
	}
}

// RegisterAdminRoutes holds the lifecycle changes only administrators make.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PATCH("/requests/:id/status", h.UpdateStatus)
}

// CreateRequest persists the request and returns before donors are notified.
func (h *Handler) CreateRequest(c *gin.Context) {
	var in model.CreateRequestInput
	if err := handler.BindJSON(c, &in); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	req, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondCreated(c, req)
}

func (h *Handler) ListRequests(c *gin.Context) {
	var filter model.RequestFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid query", err))
		return
	}

	requests, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	req, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, req)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var in model.UpdateRequestStatusInput
	if err := handler.BindJSON(c, &in); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	req, err := h.service.UpdateStatus(c.Request.Context(), id, in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, req)
}

func (h *Handler) ListMatches(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	contacts, err := h.service.Matches(c.Request.Context(), id, handler.ContactScope(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, contacts)
}

// NotifySelected sends the request to operator-chosen donors synchronously
// and reports per-donor outcomes.
func (h *Handler) NotifySelected(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var in model.SendToSelectedRequest
	if err := handler.BindJSON(c, &in); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	outcome, err := h.service.SendToSelected(c.Request.Context(), id, in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, outcome)
}
