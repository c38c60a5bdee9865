package donor

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/internal/handler"
	"github.com/jwalitptl/bloodlink-api/internal/service/directory"
	"github.com/jwalitptl/bloodlink-api/internal/service/matching"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/httputil"
)

type Handler struct {
	directory directory.DirectoryServicer
}

func NewHandler(directory directory.DirectoryServicer) *Handler {
	return &Handler{directory: directory}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/donors/eligible", h.ListEligible)
}

type eligibleQuery struct {
	BloodTypeID int64 `form:"blood_type_id" binding:"required,gt=0"`
	LocationID  int64 `form:"location_id" binding:"required,gt=0"`
}

// ListEligible answers "who could donate here right now".
func (h *Handler) ListEligible(c *gin.Context) {
	var q eligibleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("blood_type_id and location_id are required", err))
		return
	}

	donors, err := h.directory.FindEligibleDonors(c.Request.Context(), q.BloodTypeID, q.LocationID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, matching.Contacts(donors, handler.ContactScope(c)))
}
