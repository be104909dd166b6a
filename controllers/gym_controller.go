package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
	"github.com/peakfit/peakfit/utils"
)

// GymController serves the gym directory. Geofence reads sit on the hot ping
// path, so single-gym lookups go through a short Redis cache.
type GymController struct {
	store store.Store
}

// NewGymController creates a new controller instance.
func NewGymController(st store.Store) *GymController {
	return &GymController{store: st}
}

func gymCacheKey(id uint) string {
	return fmt.Sprintf("peakfit:gym:%d", id)
}

// List returns all gyms in the directory.
func (c *GymController) List(ctx *gin.Context) {
	gyms, err := c.store.Gyms().List(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list gyms")
		return
	}
	utils.Success(ctx, gin.H{"gyms": gyms})
}

// Get returns one gym by ID, cache first.
func (c *GymController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid gym id")
		return
	}

	var cached models.Gym
	if utils.CacheGetJSON(gymCacheKey(uint(id)), &cached) {
		utils.Success(ctx, gin.H{"gym": cached})
		return
	}

	gym, err := c.store.Gyms().ByID(ctx.Request.Context(), uint(id))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load gym")
		return
	}
	if gym == nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "gym not found")
		return
	}

	utils.CacheSetJSON(gymCacheKey(gym.ID), gym, 0)
	utils.Success(ctx, gin.H{"gym": gym})
}

type gymRequest struct {
	Name        string  `json:"name" binding:"required,max=128"`
	Description string  `json:"description" binding:"max=2048"`
	Address     string  `json:"address" binding:"max=255"`
	Latitude    float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" binding:"min=-180,max=180"`

	RadiusM            float64 `json:"radius_m" binding:"required,gt=0"`
	AutoCheckinEnabled bool    `json:"auto_checkin_enabled"`
	MinStayMinutes     int     `json:"min_stay_minutes" binding:"gte=0"`
}

// Create registers a new gym.
func (c *GymController) Create(ctx *gin.Context) {
	var req gymRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request body")
		return
	}

	gym := &models.Gym{
		Name:               utils.Sanitize(req.Name),
		Description:        utils.Sanitize(req.Description),
		Address:            utils.Sanitize(req.Address),
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		RadiusM:            req.RadiusM,
		AutoCheckinEnabled: req.AutoCheckinEnabled,
		MinStayMinutes:     req.MinStayMinutes,
	}
	if err := c.store.Gyms().Create(ctx.Request.Context(), gym); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to create gym")
		return
	}

	utils.Success(ctx, gin.H{"gym": gym})
}

// Update replaces a gym's directory entry and geofence configuration, then
// invalidates its cache entry so the next ping sees the new fence.
func (c *GymController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid gym id")
		return
	}

	var req gymRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request body")
		return
	}

	gym, err := c.store.Gyms().ByID(ctx.Request.Context(), uint(id))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load gym")
		return
	}
	if gym == nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "gym not found")
		return
	}

	gym.Name = utils.Sanitize(req.Name)
	gym.Description = utils.Sanitize(req.Description)
	gym.Address = utils.Sanitize(req.Address)
	gym.Latitude = req.Latitude
	gym.Longitude = req.Longitude
	gym.RadiusM = req.RadiusM
	gym.AutoCheckinEnabled = req.AutoCheckinEnabled
	gym.MinStayMinutes = req.MinStayMinutes

	if err := c.store.Gyms().Save(ctx.Request.Context(), gym); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to update gym")
		return
	}

	utils.CacheDelete(gymCacheKey(gym.ID))
	utils.Success(ctx, gin.H{"gym": gym})
}
