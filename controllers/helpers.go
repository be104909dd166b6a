package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peakfit/peakfit/middleware"
	"github.com/peakfit/peakfit/services"
	"github.com/peakfit/peakfit/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// respondBusinessError maps the engine's business-rule failures onto HTTP
// responses. Returns false when err is not a known business error, in which
// case the caller answers with a generic 500.
func respondBusinessError(ctx *gin.Context, err error) bool {
	switch {
	case errors.Is(err, services.ErrGymNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, err.Error())
	case errors.Is(err, services.ErrNoActivePresence):
		utils.Error(ctx, http.StatusNotFound, 40402, err.Error())
	case errors.Is(err, services.ErrGeofenceDisabled):
		utils.Error(ctx, http.StatusForbidden, 40301, err.Error())
	case errors.Is(err, services.ErrGpsAccuracyTooLow):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, services.ErrOutOfRange):
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		utils.Error(ctx, http.StatusBadRequest, 40003, err.Error())
	case errors.Is(err, services.ErrAlreadyCheckedInToday):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	case errors.Is(err, services.ErrDuplicateLedgerEntry):
		utils.Error(ctx, http.StatusConflict, 40902, err.Error())
	default:
		return false
	}
	return true
}
