package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peakfit/peakfit/services"
	"github.com/peakfit/peakfit/store"
	"github.com/peakfit/peakfit/utils"
)

// CheckInController exposes the attendance engine: location pings, dwell
// confirmation, checkout and the gamification status read.
type CheckInController struct {
	store store.Store
	svc   *services.CheckInService
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(st store.Store, svc *services.CheckInService) *CheckInController {
	return &CheckInController{store: st, svc: svc}
}

type pingRequest struct {
	GymID     uint    `json:"gym_id" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	AccuracyM float64 `json:"accuracy_m" binding:"gte=0"`
}

// AutoCheckIn ingests one location ping from the mobile client.
func (c *CheckInController) AutoCheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req pingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}

	res, err := c.svc.AutoCheckIn(ctx.Request.Context(), userID, req.GymID, req.Latitude, req.Longitude, req.AccuracyM)
	if err != nil {
		if !respondBusinessError(ctx, err) {
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to process location update")
		}
		return
	}

	utils.Success(ctx, checkinPayload(res))
}

type confirmRequest struct {
	GymID uint `json:"gym_id" binding:"required"`
}

// Confirm re-evaluates the open presence when the client's dwell timer fires.
func (c *CheckInController) Confirm(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req confirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}

	res, err := c.svc.Confirm(ctx.Request.Context(), userID, req.GymID)
	if err != nil {
		if !respondBusinessError(ctx, err) {
			utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to confirm presence")
		}
		return
	}

	utils.Success(ctx, checkinPayload(res))
}

// ManualCheckIn records a front-desk attendance for the authenticated user.
func (c *CheckInController) ManualCheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req confirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}

	res, err := c.svc.ManualCheckIn(ctx.Request.Context(), userID, req.GymID)
	if err != nil {
		if !respondBusinessError(ctx, err) {
			utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to record check-in")
		}
		return
	}

	utils.Success(ctx, checkinPayload(res))
}

type checkoutRequest struct {
	GymID     uint    `json:"gym_id" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// CheckOut closes the user's open presence and stamps the attendance
// duration.
func (c *CheckInController) CheckOut(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req checkoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}

	att, err := c.svc.CheckOut(ctx.Request.Context(), userID, req.GymID, req.Latitude, req.Longitude)
	if err != nil {
		if !respondBusinessError(ctx, err) {
			utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to check out")
		}
		return
	}

	utils.Success(ctx, gin.H{"attendance": att})
}

// Status returns the user's streak, weekly frequency, balance and open
// presences.
func (c *CheckInController) Status(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	res, err := c.svc.Status(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load status")
		return
	}

	utils.Success(ctx, gin.H{
		"streak":    res.Streak,
		"frequency": res.Frequency,
		"balance":   res.Balance,
		"presences": res.Presences,
	})
}

// History returns the user's recent attendances, newest first.
func (c *CheckInController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "30"))
	if limit < 1 || limit > 100 {
		limit = 30
	}

	attendances, err := c.store.Attendances().ListForUser(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to load attendance history")
		return
	}
	utils.Success(ctx, gin.H{"attendances": attendances})
}

// Weeks returns the user's archived weekly frequency snapshots, newest first.
func (c *CheckInController) Weeks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "12"))
	if limit < 1 || limit > 52 {
		limit = 12
	}

	weeks, err := c.store.Frequencies().History(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to load weekly history")
		return
	}
	utils.Success(ctx, gin.H{"weeks": weeks})
}

func checkinPayload(res *services.CheckInResult) gin.H {
	payload := gin.H{
		"presence": res.Presence,
	}
	if res.Attendance != nil {
		payload["attendance"] = res.Attendance
		payload["streak"] = res.Streak
		payload["frequency"] = res.Frequency
		payload["tokens_credited"] = res.TokensCredited
		payload["balance"] = res.Balance
	}
	return payload
}
