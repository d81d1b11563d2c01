package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pisqre/backend/internal/api/middleware"
	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/jwt"
	"pisqre/backend/pkg/response"
)

// MustGetCaller 从 Gin 上下文中提取当前调用方。
// JWT 中间件未注入身份时写入 401 并返回 false，调用方应直接 return。
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	id := c.GetString(middleware.CtxUserID)
	role := c.GetString(middleware.CtxRole)
	if id == "" || role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{ID: id, Role: role}, true
}

// GetClaims 当前请求的 access token 声明，未认证时为 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(middleware.CtxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// MustParamID 读取路径中的 UUID 参数，格式错误时写入 400
func MustParamID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, 10001, name+" 格式无效")
		return "", false
	}
	return id, true
}

// okList 列表为空时按 404 返回
func okList[T any](c *gin.Context, list []T, total int64, emptyMsg string) {
	if len(list) == 0 {
		response.EmptyList(c, emptyMsg)
		return
	}
	response.OKList(c, list, total)
}

// okPage 分页列表为空时按 404 返回
func okPage[T any](c *gin.Context, list []T, total int64, page, pageSize int, emptyMsg string) {
	if len(list) == 0 {
		response.EmptyList(c, emptyMsg)
		return
	}
	response.OKPage(c, list, total, page, pageSize)
}
