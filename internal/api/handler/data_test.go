package handler

import (
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/pkg/response"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/service"
	"github.com/qs3c/datafair_server/internal/testutil"
)

func setupDataHandler(t *testing.T) (*DataHandler, *testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	dataService := service.NewDataPermissionService(
		repository.NewDataTypeRepository(db),
		repository.NewPermissionRepository(db),
		repository.NewEarningRepository(db),
	)

	ctx := &testContext{
		DB: db,
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return NewDataHandler(dataService), ctx, cleanup
}

func dataRouter(userID int64, h *DataHandler) *gin.Engine {
	router := gin.New()
	router.Use(mockAuth(userID))
	router.GET("/data-types", h.ListDataTypes)
	router.GET("/data-permissions", h.ListPermissions)
	router.POST("/data-permissions", h.SetPermission)
	router.DELETE("/data-permissions/:id", h.DeletePermission)
	router.GET("/data-usage", h.Usage)
	return router
}

func TestDataHandler_SetPermission(t *testing.T) {
	h, ctx, cleanup := setupDataHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	location := testutil.TestDataType(t, ctx.DB, "Standort", 1.5)
	testutil.TestDataType(t, ctx.DB, "Einkauf", 2)

	router := dataRouter(user.ID, h)

	w := performRequest(router, "POST", "/data-permissions", map[string]interface{}{
		"data_type_id": location.ID,
		"enabled":      true,
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, true, dataMap(t, resp)["enabled"])

	w = performRequest(router, "GET", "/data-types", nil)
	items, ok := parseResponse(t, w).Data.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)

	w = performRequest(router, "GET", "/data-usage", nil)
	data := dataMap(t, parseResponse(t, w))
	assert.EqualValues(t, 1, data["enabled_count"])
	assert.InDelta(t, 1.5, data["monthly_potential"], 0.001)

	// enabled 缺省时视为参数错误，而不是关闭
	w = performRequest(router, "POST", "/data-permissions", map[string]interface{}{"data_type_id": location.ID})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	w = performRequest(router, "POST", "/data-permissions", map[string]interface{}{"data_type_id": 999, "enabled": true})
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestDataHandler_DeletePermission(t *testing.T) {
	h, ctx, cleanup := setupDataHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, ctx.DB)
	other := testutil.TestUser(t, ctx.DB)
	dataType := testutil.TestDataType(t, ctx.DB, "Fitness", 1)
	perm := testutil.TestPermission(t, ctx.DB, owner.ID, dataType.ID, true)
	path := fmt.Sprintf("/data-permissions/%d", perm.ID)

	w := performRequest(dataRouter(other.ID, h), "DELETE", path, nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)

	w = performRequest(dataRouter(owner.ID, h), "DELETE", path, nil)
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	var count int64
	ctx.DB.Model(&model.DataPermission{}).Where("id = ?", perm.ID).Count(&count)
	assert.Zero(t, count)
}
