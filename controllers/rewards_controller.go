package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peakfit/peakfit/services"
	"github.com/peakfit/peakfit/store"
	"github.com/peakfit/peakfit/utils"
)

// RewardsController serves the token ledger read model and the recovery item
// shop.
type RewardsController struct {
	store store.Store
	svc   *services.CheckInService
}

// NewRewardsController creates a new controller instance.
func NewRewardsController(st store.Store, svc *services.CheckInService) *RewardsController {
	return &RewardsController{store: st, svc: svc}
}

// Balance returns the user's current token balance.
func (c *RewardsController) Balance(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	latest, err := c.store.Ledger().Latest(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load balance")
		return
	}

	balance := 0
	if latest != nil {
		balance = latest.BalanceAfter
	}
	utils.Success(ctx, gin.H{"balance": balance})
}

// History returns a page of the user's ledger, newest first.
func (c *RewardsController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	entries, err := c.store.Ledger().List(ctx.Request.Context(), userID, limit, offset)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load ledger")
		return
	}
	utils.Success(ctx, gin.H{"entries": entries})
}

// PurchaseRecoveryItem debits tokens and grants one streak recovery item.
func (c *RewardsController) PurchaseRecoveryItem(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	streak, entry, err := c.svc.PurchaseRecoveryItem(ctx.Request.Context(), userID)
	if err != nil {
		if !respondBusinessError(ctx, err) {
			utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to purchase recovery item")
		}
		return
	}

	utils.Success(ctx, gin.H{
		"streak":  streak,
		"entry":   entry,
		"balance": entry.BalanceAfter,
	})
}
