package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义。资格与提现类错误各自独立，客户端据此决定补充答案还是直接拒绝
const (
	CodeSuccess                 = 0
	CodeParamError              = 1000
	CodeAuthFailed              = 1001
	CodePermissionDenied        = 1002
	CodeResourceNotFound        = 1003
	CodeNotAvailable            = 1004
	CodeDuplicateAction         = 1005
	CodeNotQualified            = 1006
	CodeInvalidState            = 1007
	CodeInsufficientBalance     = 1008
	CodeRateLimited             = 1009
	CodeIncompleteQualification = 1010
	CodeBelowMinimum            = 1011
	CodeInvalidMethod           = 1012
	CodeServerError             = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:                 "success",
	CodeParamError:              "参数错误",
	CodeAuthFailed:              "认证失败",
	CodePermissionDenied:        "权限不足",
	CodeResourceNotFound:        "资源不存在",
	CodeNotAvailable:            "问卷不可参与",
	CodeDuplicateAction:         "重复操作",
	CodeNotQualified:            "不满足参与条件",
	CodeInvalidState:            "当前状态不允许该操作",
	CodeInsufficientBalance:     "余额不足",
	CodeRateLimited:             "请求过于频繁",
	CodeIncompleteQualification: "请先回答全部筛选问题",
	CodeBelowMinimum:            "低于最低提现金额",
	CodeInvalidMethod:           "不支持的提现方式",
	CodeServerError:             "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: PageData{
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			Items:    items,
		},
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// NotAvailableError 问卷已满、已过期或已下线
func NotAvailableError(c *gin.Context, message string) {
	Error(c, CodeNotAvailable, message)
}

// NotQualifiedError 被筛选问题淘汰，message 为淘汰原因
func NotQualifiedError(c *gin.Context, message string) {
	Error(c, CodeNotQualified, message)
}

// IncompleteQualificationError 筛选问题未答完，客户端应提示补充而不是拒绝
func IncompleteQualificationError(c *gin.Context, message string) {
	Error(c, CodeIncompleteQualification, message)
}

func InvalidStateError(c *gin.Context, message string) {
	Error(c, CodeInvalidState, message)
}

func InsufficientBalanceError(c *gin.Context, message string) {
	Error(c, CodeInsufficientBalance, message)
}

func BelowMinimumError(c *gin.Context, message string) {
	Error(c, CodeBelowMinimum, message)
}

func InvalidMethodError(c *gin.Context, message string) {
	Error(c, CodeInvalidMethod, message)
}

func RateLimitError(c *gin.Context, message string) {
	Error(c, CodeRateLimited, message)
}

func DuplicateError(c *gin.Context, message string) {
	Error(c, CodeDuplicateAction, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
