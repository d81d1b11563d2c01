package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/response"
)

// AttachmentHandler 附件 HTTP 处理器，作业与答案共用，kind 在注册路由时绑定
type AttachmentHandler struct {
	attachmentSvc service.AttachmentService
}

// NewAttachmentHandler 创建 AttachmentHandler
func NewAttachmentHandler(attachmentSvc service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentSvc: attachmentSvc}
}

// Upload 上传附件，表单字段 file
// POST /api/v1/{assignments|answers}/:id/attachments
func (h *AttachmentHandler) Upload(kind service.AttachmentParent) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := MustGetCaller(c)
		if !ok {
			return
		}
		parentID, ok := MustParamID(c, "id")
		if !ok {
			return
		}

		fh, err := c.FormFile("file")
		if err != nil {
			response.BadRequest(c, 10001, "缺少上传文件")
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, 10001, "读取上传文件失败")
			return
		}
		defer f.Close()

		info, err := h.attachmentSvc.Upload(c.Request.Context(), kind, parentID, caller, service.UploadInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
		if err != nil {
			h.handleAttachmentError(c, err)
			return
		}

		response.Created(c, "附件已上传", info)
	}
}

// List 附件列表
// GET /api/v1/{assignments|answers}/:id/attachments
func (h *AttachmentHandler) List(kind service.AttachmentParent) gin.HandlerFunc {
	return func(c *gin.Context) {
		parentID, ok := MustParamID(c, "id")
		if !ok {
			return
		}

		list, err := h.attachmentSvc.List(c.Request.Context(), kind, parentID)
		if err != nil {
			h.handleAttachmentError(c, err)
			return
		}
		okList(c, list, int64(len(list)), "暂无附件")
	}
}

// Download 下载附件
// GET /api/v1/{assignments|answers}/:id/attachments/:fileId
func (h *AttachmentHandler) Download(kind service.AttachmentParent) gin.HandlerFunc {
	return func(c *gin.Context) {
		parentID, ok := MustParamID(c, "id")
		if !ok {
			return
		}

		var buf bytes.Buffer
		info, err := h.attachmentSvc.Download(c.Request.Context(), kind, parentID, c.Param("fileId"), &buf)
		if err != nil {
			h.handleAttachmentError(c, err)
			return
		}

		contentType := info.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Description", "File Transfer")
		c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(info.Filename))
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

// Delete 删除附件（上传者或管理员）
// DELETE /api/v1/{assignments|answers}/:id/attachments/:fileId
func (h *AttachmentHandler) Delete(kind service.AttachmentParent) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := MustGetCaller(c)
		if !ok {
			return
		}
		parentID, ok := MustParamID(c, "id")
		if !ok {
			return
		}

		if err := h.attachmentSvc.Delete(c.Request.Context(), kind, parentID, c.Param("fileId"), caller); err != nil {
			h.handleAttachmentError(c, err)
			return
		}

		response.OKWithMessage(c, "附件已删除", nil)
	}
}

func (h *AttachmentHandler) handleAttachmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttachmentNotFound):
		response.NotFound(c, 18001, "附件不存在")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 12001, "作业不存在")
	case errors.Is(err, service.ErrAnswerNotFound):
		response.NotFound(c, 14002, "答案不存在")
	case errors.Is(err, service.ErrAttachmentTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 18002, "附件超过大小限制")
	case errors.Is(err, service.ErrInvalidParentKind):
		response.BadRequest(c, 18003, "不支持的附件归属类型")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
