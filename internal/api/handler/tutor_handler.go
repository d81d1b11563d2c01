package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/response"
)

// TutorHandler 导师模块 HTTP 处理器
type TutorHandler struct {
	tutorSvc service.TutorService
}

// NewTutorHandler 创建 TutorHandler
func NewTutorHandler(tutorSvc service.TutorService) *TutorHandler {
	return &TutorHandler{tutorSvc: tutorSvc}
}

// List 导师列表，可按审核状态过滤
// GET /api/v1/tutors
func (h *TutorHandler) List(c *gin.Context) {
	var req dto.TutorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.tutorSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleTutorError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无导师")
}

// Get 导师详情
// GET /api/v1/tutors/:id
func (h *TutorHandler) Get(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	tutor, err := h.tutorSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleTutorError(c, err)
		return
	}

	response.OK(c, tutor)
}

// Verify 审核导师（管理员）
// PUT /api/v1/tutors/:id/verify
func (h *TutorHandler) Verify(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.VerifyTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tutor, err := h.tutorSvc.SetVerified(c.Request.Context(), id, *req.Verified)
	if err != nil {
		h.handleTutorError(c, err)
		return
	}

	response.OK(c, tutor)
}

func (h *TutorHandler) handleTutorError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrTutorNotFound) {
		response.NotFound(c, 17001, "导师不存在")
		return
	}
	response.InternalError(c)
}
