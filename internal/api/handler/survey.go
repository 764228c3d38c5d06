package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/api/middleware"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

type SurveyHandler struct {
	catalogService       *service.CatalogService
	qualificationService *service.QualificationService
	lifecycleService     *service.LifecycleService
}

func NewSurveyHandler(
	catalogService *service.CatalogService,
	qualificationService *service.QualificationService,
	lifecycleService *service.LifecycleService,
) *SurveyHandler {
	return &SurveyHandler{
		catalogService:       catalogService,
		qualificationService: qualificationService,
		lifecycleService:     lifecycleService,
	}
}

// List 可参与的问卷
// GET /api/v1/surveys?category=tech
func (h *SurveyHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.catalogService.ListAvailable(userID, c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}

// InProgress 进行中的答卷
// GET /api/v1/surveys/in-progress
func (h *SurveyHandler) InProgress(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.catalogService.ListInProgress(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}

// History 已完成或已放弃的答卷
// GET /api/v1/surveys/history
func (h *SurveyHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.catalogService.History(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}

// Categories 问卷分类
// GET /api/v1/surveys/categories
func (h *SurveyHandler) Categories(c *gin.Context) {
	response.Success(c, h.catalogService.ListCategories())
}

// Stats 当前用户的答卷统计
// GET /api/v1/surveys/stats
func (h *SurveyHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stats, err := h.catalogService.Stats(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, stats)
}

// Get 问卷详情
// GET /api/v1/surveys/:id
func (h *SurveyHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	surveyID, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.catalogService.GetSurvey(userID, surveyID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, detail)
}

// Qualify 提交筛选答案
// POST /api/v1/surveys/:id/qualify
func (h *SurveyHandler) Qualify(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	surveyID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.QualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.qualificationService.Check(userID, surveyID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Start 开始或继续答卷
// POST /api/v1/surveys/:id/start
func (h *SurveyHandler) Start(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	surveyID, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.lifecycleService.Start(userID, surveyID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, resp)
}
