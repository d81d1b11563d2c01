package handler

import (
	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/response"
)

// LinkHandler 派发记录查询 HTTP 处理器
type LinkHandler struct {
	querySvc service.AssignmentQueryService
}

// NewLinkHandler 创建 LinkHandler
func NewLinkHandler(querySvc service.AssignmentQueryService) *LinkHandler {
	return &LinkHandler{querySvc: querySvc}
}

type linkPageFunc func(c *gin.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error)

func (h *LinkHandler) page(c *gin.Context, fetch linkPageFunc, emptyMsg string) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := fetch(c, &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okPage(c, list, total, req.GetPage(), req.GetPageSize(), emptyMsg)
}

// ListAll 全部派发记录（管理员）
// GET /api/v1/links
func (h *LinkHandler) ListAll(c *gin.Context) {
	h.page(c, func(c *gin.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error) {
		return h.querySvc.ListAllLinks(c.Request.Context(), req)
	}, "暂无派发记录")
}

// ListAccepted 已接受的派发记录（管理员）
// GET /api/v1/links/accepted
func (h *LinkHandler) ListAccepted(c *gin.Context) {
	h.page(c, func(c *gin.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error) {
		return h.querySvc.ListAccepted(c.Request.Context(), req)
	}, "暂无已接受的派发记录")
}

// ListRejected 已拒绝的派发记录（管理员）
// GET /api/v1/links/rejected
func (h *LinkHandler) ListRejected(c *gin.Context) {
	h.page(c, func(c *gin.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error) {
		return h.querySvc.ListRejected(c.Request.Context(), req)
	}, "暂无已拒绝的派发记录")
}

// ListForTutor 派给某导师的记录，导师只能查看自己的
// GET /api/v1/links/tutors/:id
func (h *LinkHandler) ListForTutor(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}
	if !caller.IsAdmin() && caller.ID != id {
		response.Forbidden(c, 10003, "无权限访问")
		return
	}

	list, total, err := h.querySvc.FindLinksForTutor(c.Request.Context(), id)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okList(c, list, total, "该导师暂无派发记录")
}
