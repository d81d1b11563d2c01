package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pisqre/backend/pkg/response"
)

// BodyLimit 请求体大小限制，超限时读取报错，由各 Handler 的参数校验返回 400
// multipart 上传由附件服务按 mongo.max_upload_bytes 单独限制，不经过此中间件
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && maxBytes > 0 && c.ContentType() != "multipart/form-data" {
			if c.Request.ContentLength > maxBytes {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				c.Abort()
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
