// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appauth "github.com/schoolguidance/tracker/internal/app/auth"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/middleware"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
)

// parseIDParam reads a positive int64 path parameter, writing a 400 when it
// is malformed
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails("ID must be a positive number")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// queryInt64 reads an optional int64 query parameter
func queryInt64(ctx *gin.Context, name string) (*int64, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, name+" must be a number").WithField(name)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return &v, true
}

// queryInt reads an optional int query parameter
func queryInt(ctx *gin.Context, name string) (*int, bool) {
	v, ok := queryInt64(ctx, name)
	if !ok || v == nil {
		return nil, ok
	}
	i := int(*v)
	return &i, true
}

// actorFrom returns the authenticated caller, writing a 401 when absent
func actorFrom(ctx *gin.Context) (appauth.Actor, bool) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return appauth.Actor{}, false
	}
	return actor, true
}

// respondPage writes a paginated list
func respondPage(ctx *gin.Context, items interface{}, total int64, page, size int, message string) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, message))
}
