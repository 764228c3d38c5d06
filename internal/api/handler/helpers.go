package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// parseID 解析路径中的数字 ID
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的ID")
		return 0, false
	}
	return id, true
}

// pagination 读取 page/page_size，非法值回落到默认值
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// writeError 将领域错误映射为业务码
func writeError(c *gin.Context, err error) {
	var disqualified *service.DisqualifiedError

	switch {
	case errors.As(err, &disqualified):
		response.NotQualifiedError(c, disqualified.Reason)
	case errors.Is(err, service.ErrIncompleteQualification):
		response.IncompleteQualificationError(c, err.Error())

	case errors.Is(err, service.ErrSurveyNotFound),
		errors.Is(err, service.ErrResponseNotFound),
		errors.Is(err, service.ErrPayoutNotFound),
		errors.Is(err, service.ErrDataTypeNotFound),
		errors.Is(err, service.ErrPermissionNotFound),
		errors.Is(err, service.ErrActivityNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())

	case errors.Is(err, service.ErrSurveyNotAvailable):
		response.NotAvailableError(c, err.Error())
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrPayoutInProgress):
		response.InvalidStateError(c, err.Error())

	case errors.Is(err, service.ErrInsufficientBalance):
		response.InsufficientBalanceError(c, err.Error())
	case errors.Is(err, service.ErrBelowMinimum):
		response.BelowMinimumError(c, err.Error())
	case errors.Is(err, service.ErrInvalidMethod):
		response.InvalidMethodError(c, err.Error())

	case errors.Is(err, model.ErrInvalidAnswer),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidSurvey),
		errors.Is(err, service.ErrInvalidSurveyStatus),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidSourceType),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrEmailExists):
		response.ParamError(c, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive):
		response.AuthError(c, err.Error())

	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "")
	}
}
