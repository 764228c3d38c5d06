package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/api/middleware"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

type ActivityHandler struct {
	activityService *service.ActivityService
}

func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// List 动态列表
// GET /api/v1/activities?type=payout&page=1&page_size=20
func (h *ActivityHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pagination(c)
	items, total, err := h.activityService.List(userID, c.Query("type"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Stats 动态统计
// GET /api/v1/activities/stats
func (h *ActivityHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stats, err := h.activityService.Stats(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, stats)
}

// Get 动态详情
// GET /api/v1/activities/:id
func (h *ActivityHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := h.activityService.Get(userID, activityID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}
