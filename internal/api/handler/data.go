package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/datafair_server/internal/api/middleware"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/service"
)

type DataHandler struct {
	dataService *service.DataPermissionService
}

func NewDataHandler(dataService *service.DataPermissionService) *DataHandler {
	return &DataHandler{
		dataService: dataService,
	}
}

// ListDataTypes 数据类别
// GET /api/v1/data-types
func (h *DataHandler) ListDataTypes(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.dataService.ListDataTypes(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}

// ListPermissions 数据授权
// GET /api/v1/data-permissions
func (h *DataHandler) ListPermissions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.dataService.ListPermissions(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}

// SetPermission 开启或关闭授权
// POST /api/v1/data-permissions
func (h *DataHandler) SetPermission(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SetPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.dataService.SetPermission(userID, req.DataTypeID, *req.Enabled)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// DeletePermission 删除授权
// DELETE /api/v1/data-permissions/:id
func (h *DataHandler) DeletePermission(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	permissionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.dataService.DeletePermission(userID, permissionID); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Usage 数据共享概况
// GET /api/v1/data-usage
func (h *DataHandler) Usage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	usage, err := h.dataService.Usage(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, usage)
}
