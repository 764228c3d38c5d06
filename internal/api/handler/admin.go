package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

// AdminHandler 管理端接口，路由上须挂 AdminOnly
type AdminHandler struct {
	catalogService *service.CatalogService
	payoutService  *service.PayoutService
	earningService *service.EarningService
}

func NewAdminHandler(
	catalogService *service.CatalogService,
	payoutService *service.PayoutService,
	earningService *service.EarningService,
) *AdminHandler {
	return &AdminHandler{
		catalogService: catalogService,
		payoutService:  payoutService,
		earningService: earningService,
	}
}

// CreateSurvey 创建问卷
// POST /api/v1/admin/surveys
func (h *AdminHandler) CreateSurvey(c *gin.Context) {
	var req dto.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.catalogService.CreateSurvey(&req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", resp)
}

// UpdateSurveyStatus 更新问卷状态
// PUT /api/v1/admin/surveys/:id/status
func (h *AdminHandler) UpdateSurveyStatus(c *gin.Context) {
	surveyID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSurveyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.catalogService.UpdateStatus(surveyID, req.Status); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", nil)
}

// UpdatePayoutStatus 推进提现状态
// PUT /api/v1/admin/payouts/:id/status
func (h *AdminHandler) UpdatePayoutStatus(c *gin.Context) {
	payoutID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePayoutStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	payout, err := h.payoutService.Settle(c.Request.Context(), payoutID, req.Status, req.ExternalID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, payout)
}

// AddBonus 发放奖励
// POST /api/v1/admin/earnings/bonus
func (h *AdminHandler) AddBonus(c *gin.Context) {
	var req dto.BonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	earning, err := h.earningService.AddBonus(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "发放成功", earning)
}
