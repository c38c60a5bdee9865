package confirmation

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/internal/handler"
	"github.com/jwalitptl/bloodlink-api/internal/middleware"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	confirmationService "github.com/jwalitptl/bloodlink-api/internal/service/confirmation"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/httputil"
	"github.com/jwalitptl/bloodlink-api/pkg/validator"
)

type Handler struct {
	service   confirmationService.ConfirmationServicer
	validator validator.Validator
}

func NewHandler(service confirmationService.ConfirmationServicer, v validator.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

// RegisterStaffRoutes exposes the read side to administrators and hospitals.
func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	r.GET("/requests/:id/confirmations", h.ListConfirmations)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/requests/:id/confirmations", h.RecordConfirmation)
}

func (h *Handler) RegisterDonorRoutes(r *gin.RouterGroup) {
	r.POST("/donor/requests/:id/respond", h.RespondToRequest)
}

// RecordConfirmation is the administrator write path. Notes are kept
// unless new non-blank notes are sent.
func (h *Handler) RecordConfirmation(c *gin.Context) {
	requestID, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var body model.RecordConfirmationRequest
	if err := handler.BindJSON(c, &body); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if violations := h.validator.Violations(body); len(violations) > 0 {
		httputil.RespondWithError(c, apperrors.Validation(violations))
		return
	}

	result, err := h.service.Record(c.Request.Context(), model.ConfirmationInput{
		RequestID:  requestID,
		DonorID:    body.DonorID,
		Status:     body.Status,
		Message:    body.Message,
		AdminNotes: body.AdminNotes,
		Source:     model.SourceAdmin,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if result.IsNewRecord {
		httputil.RespondCreated(c, result)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ListConfirmations(c *gin.Context) {
	requestID, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	views, err := h.service.List(c.Request.Context(), requestID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, views)
}

// RespondToRequest lets a signed-in donor answer for themselves. The donor
// comes from the token, never the body.
func (h *Handler) RespondToRequest(c *gin.Context) {
	requestID, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	claims := middleware.ClaimsFrom(c)
	if claims == nil || claims.DonorID <= 0 {
		httputil.RespondWithError(c, apperrors.Forbidden("token is not linked to a donor profile"))
		return
	}

	var body model.DonorResponseRequest
	if err := handler.BindOptionalJSON(c, &body); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if violations := h.validator.Violations(body); len(violations) > 0 {
		httputil.RespondWithError(c, apperrors.Validation(violations))
		return
	}

	result, err := h.service.Record(c.Request.Context(), model.ConfirmationInput{
		RequestID: requestID,
		DonorID:   claims.DonorID,
		Status:    body.Status,
		Message:   body.Message,
		Source:    model.SourceDonor,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, result)
}
