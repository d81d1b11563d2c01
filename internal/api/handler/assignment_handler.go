package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/service"
	pkgerrors "pisqre/backend/pkg/errors"
	"pisqre/backend/pkg/response"
)

// AssignmentHandler 作业模块 HTTP 处理器（流程操作与作业查询）
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
	querySvc      service.AssignmentQueryService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService, querySvc service.AssignmentQueryService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc, querySvc: querySvc}
}

// ────────────────────── 作业 CRUD ──────────────────────

// Create 发布作业
// POST /api/v1/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.assignmentSvc.Create(c.Request.Context(), caller.ID, &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.Created(c, "作业已提交", a)
}

// Get 作业详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	a, err := h.assignmentSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// Update 修改作业（发布者或管理员，仅 submitted 状态）
// PATCH /api/v1/assignments/:id
func (h *AssignmentHandler) Update(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.assignmentSvc.Update(c.Request.Context(), id, caller, &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// Delete 删除作业
// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	if err := h.assignmentSvc.Delete(c.Request.Context(), id, caller); err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OKWithMessage(c, "作业已删除", nil)
}

// ────────────────────── 流程操作 ──────────────────────

// SendToTutor 派发作业给导师
// POST /api/v1/assignments/:id/send
func (h *AssignmentHandler) SendToTutor(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.TutorTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	link, err := h.assignmentSvc.SendToTutor(c.Request.Context(), id, req.TutorID)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.Created(c, "作业已派发", link)
}

// AssignToTutor 将作业分配给导师
// POST /api/v1/assignments/:id/assign
func (h *AssignmentHandler) AssignToTutor(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.TutorTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.assignmentSvc.AssignToTutor(c.Request.Context(), id, req.TutorID)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// Decide 导师接受或拒绝派发
// POST /api/v1/assignments/:id/decision
func (h *AssignmentHandler) Decide(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	link, err := h.assignmentSvc.Decide(c.Request.Context(), id, caller.ID, model.LinkDecision(req.Decision))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, link)
}

// SubmitAnswer 提交作业答案
// POST /api/v1/assignments/:id/answer
func (h *AssignmentHandler) SubmitAnswer(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.SubmitAnswer(c.Request.Context(), id, caller, req.Answer)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.Created(c, "答案已提交", result)
}

// VerifyAnswer 审核作业答案
// POST /api/v1/assignments/:id/verify
func (h *AssignmentHandler) VerifyAnswer(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	a, err := h.assignmentSvc.VerifyAnswer(c.Request.Context(), id)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// ────────────────────── 查询 ──────────────────────

// ListAll 全部作业（管理员）
// GET /api/v1/assignments
func (h *AssignmentHandler) ListAll(c *gin.Context) {
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.querySvc.ListAll(c.Request.Context(), &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无作业")
}

// ListMine 我发布的作业
// GET /api/v1/assignments/me
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	h.listForPoster(c, caller.ID)
}

// ListForUser 指定用户发布的作业（管理员）
// GET /api/v1/assignments/users/:id
func (h *AssignmentHandler) ListForUser(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}
	h.listForPoster(c, id)
}

func (h *AssignmentHandler) listForPoster(c *gin.Context, posterID string) {
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.querySvc.ListForPoster(c.Request.Context(), posterID, &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "该用户暂无作业")
}

// ListForTutor 分配给导师的作业，导师只能查看自己的
// GET /api/v1/assignments/tutors/:id
func (h *AssignmentHandler) ListForTutor(c *gin.Context) {
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

	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.querySvc.ListForTutor(c.Request.Context(), id, &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "该导师暂无作业")
}

// ListUnanswered 未答作业
// GET /api/v1/assignments/unanswered
func (h *AssignmentHandler) ListUnanswered(c *gin.Context) {
	list, total, err := h.querySvc.ListUnanswered(c.Request.Context())
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okList(c, list, total, "暂无未答作业")
}

// ListUnverified 待审核作业（管理员）
// GET /api/v1/assignments/unverified
func (h *AssignmentHandler) ListUnverified(c *gin.Context) {
	list, total, err := h.querySvc.ListUnverified(c.Request.Context())
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okList(c, list, total, "暂无待审核作业")
}

// Search 按对外编号搜索
// GET /api/v1/assignments/search?code=
func (h *AssignmentHandler) Search(c *gin.Context) {
	var req dto.SearchAssignmentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "code 不能为空")
		return
	}

	list, total, err := h.querySvc.SearchByExternalID(c.Request.Context(), req.Code)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okList(c, list, total, "未找到匹配的作业")
}

// ListLinks 作业的派发记录（管理员）
// GET /api/v1/assignments/:id/links
func (h *AssignmentHandler) ListLinks(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	list, total, err := h.querySvc.FindLinksForAssignment(c.Request.Context(), id)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okList(c, list, total, "该作业暂无派发记录")
}

// ListAcceptedLinks 作业已被接受的派发记录（管理员）
// GET /api/v1/assignments/:id/links/accepted
func (h *AssignmentHandler) ListAcceptedLinks(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	list, total, err := h.querySvc.FindAcceptedLinksForAssignment(c.Request.Context(), id)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	okList(c, list, total, "该作业暂无导师接受")
}

// handleAssignmentError 作业与派发记录共用的错误映射
func handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 12001, "作业不存在")
	case errors.Is(err, service.ErrTutorNotFound):
		response.NotFound(c, 12002, "导师不存在")
	case errors.Is(err, service.ErrLinkNotFound):
		response.NotFound(c, 12003, "该导师没有此作业的派发记录")
	case errors.Is(err, service.ErrInvalidStateTransition):
		response.Conflict(c, 12004, "当前作业状态不允许此操作")
	case errors.Is(err, service.ErrAssignmentAlreadyAccepted):
		response.Conflict(c, 12005, "该作业已被其他导师接受")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12006, "作业已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrAssignmentHasLinks):
		response.Conflict(c, 12007, "作业已派发给导师，无法删除")
	case errors.Is(err, service.ErrAssignmentNotEditable):
		response.Conflict(c, 12008, "作业已进入处理流程，无法修改")
	case errors.Is(err, service.ErrNotAssignedTutor):
		response.Forbidden(c, 12009, "只有被分配的导师可以提交答案")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrDeadlineInPast),
		errors.Is(err, service.ErrEmptyCourseName),
		errors.Is(err, service.ErrEmptyAnswer),
		errors.Is(err, service.ErrInvalidDecision):
		response.Error(c, http.StatusBadRequest, 12010, err.Error())
	default:
		response.InternalError(c)
	}
}
