package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/api/middleware"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

type EarningHandler struct {
	earningService *service.EarningService
	payoutService  *service.PayoutService
}

func NewEarningHandler(earningService *service.EarningService, payoutService *service.PayoutService) *EarningHandler {
	return &EarningHandler{
		earningService: earningService,
		payoutService:  payoutService,
	}
}

// Overview 收益概览
// GET /api/v1/earnings
func (h *EarningHandler) Overview(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	overview, err := h.earningService.Overview(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, overview)
}

// History 收益流水
// GET /api/v1/earnings/history?source_type=survey&page=1&page_size=20
func (h *EarningHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pagination(c)
	items, total, err := h.earningService.ListEarnings(userID, c.Query("source_type"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// RequestPayout 申请提现
// POST /api/v1/payouts
func (h *EarningHandler) RequestPayout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	payout, err := h.payoutService.RequestPayout(c.Request.Context(), userID, req.Amount, req.Method)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "提现申请已提交", payout)
}

// ListPayouts 提现记录
// GET /api/v1/payouts
func (h *EarningHandler) ListPayouts(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pagination(c)
	items, total, err := h.payoutService.List(userID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
