package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/response"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 我的通知
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.notificationSvc.ListMine(c.Request.Context(), caller.ID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无通知")
}

// UnreadCount 未读数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.notificationSvc.UnreadCount(c.Request.Context(), caller.ID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, result)
}

// Get 读取通知并标记已读
// GET /api/v1/notifications/:id
func (h *NotificationHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	n, err := h.notificationSvc.Get(c.Request.Context(), id, caller.ID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, n)
}

// Delete 删除通知
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationSvc.Delete(c.Request.Context(), id, caller.ID); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OKWithMessage(c, "通知已删除", nil)
}

func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotificationNotFound) {
		response.NotFound(c, 15001, "通知不存在")
		return
	}
	response.InternalError(c)
}
