package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/api/middleware"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

type ResponseHandler struct {
	lifecycleService *service.LifecycleService
}

func NewResponseHandler(lifecycleService *service.LifecycleService) *ResponseHandler {
	return &ResponseHandler{
		lifecycleService: lifecycleService,
	}
}

// Get 答卷详情
// GET /api/v1/responses/:id
func (h *ResponseHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	responseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.lifecycleService.GetResponse(userID, responseID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, detail)
}

// SaveProgress 保存进度
// PUT /api/v1/responses/:id/progress
func (h *ResponseHandler) SaveProgress(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	responseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.lifecycleService.SaveProgress(userID, responseID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, detail)
}

// Submit 提交答卷
// POST /api/v1/responses/:id/submit
func (h *ResponseHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	responseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	resp, err := h.lifecycleService.Submit(c.Request.Context(), userID, responseID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "提交成功", resp)
}

// Abandon 放弃答卷
// POST /api/v1/responses/:id/abandon
func (h *ResponseHandler) Abandon(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	responseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.lifecycleService.Abandon(c.Request.Context(), userID, responseID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, detail)
}
