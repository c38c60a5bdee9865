package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/internal/middleware"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/auth"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
)

// ContactScope is ScopeAdmin for administrators and ScopeRequester otherwise.
func ContactScope(c *gin.Context) model.ContactScope {
	if claims := middleware.ClaimsFrom(c); claims != nil && claims.Role == auth.RoleAdmin {
		return model.ScopeAdmin
	}
	return model.ScopeRequester
}

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}

// BindJSON decodes the body. Field rules are checked by the services, so
// only malformed or oversize bodies fail here.
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindError(err)
	}
	return nil
}

// BindOptionalJSON is BindJSON that accepts an empty body.
func BindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.PayloadTooLarge(tooLarge.Limit)
	}
	return apperrors.BadRequest("invalid request body", err)
}
