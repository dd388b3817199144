package controller

import (
	"mindscreen_backend/internal/service"
	"mindscreen_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

func pagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(util.DefaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > util.MaxPageSize {
		limit = util.DefaultPageSize
	}
	return page, limit
}

// uintParam 解析路径中的数字ID，失败时已写入 400 响应
func uintParam(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}

// optionalUintQuery 解析可选的数字查询参数，未提供时返回 0
func optionalUintQuery(ctx *gin.Context, name string) (uint, bool) {
	v := ctx.Query(name)
	if v == "" {
		return 0, true
	}
	id, ok := util.ParseID(v)
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}

// currentEditor 取出令牌中的当前用户，未登录时已写入 401 响应
func currentEditor(ctx *gin.Context) (service.Editor, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return service.Editor{}, false
	}
	return service.Editor{UserID: user.UserID, Role: user.Role}, true
}
