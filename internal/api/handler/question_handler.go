package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/service"
	pkgerrors "pisqre/backend/pkg/errors"
	"pisqre/backend/pkg/response"
)

// QuestionHandler 问答模块 HTTP 处理器
type QuestionHandler struct {
	questionSvc service.QuestionService
	answerSvc   service.AnswerService
}

// NewQuestionHandler 创建 QuestionHandler
func NewQuestionHandler(questionSvc service.QuestionService, answerSvc service.AnswerService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc, answerSvc: answerSvc}
}

// ── 问题 ──

// Ask 提问
// POST /api/v1/questions
func (h *QuestionHandler) Ask(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	q, err := h.questionSvc.Ask(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.Created(c, "问题已发布", q)
}

// List 问题列表，?mine=true 只看自己的
// GET /api/v1/questions
func (h *QuestionHandler) List(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	askerID := ""
	if c.Query("mine") == "true" {
		caller, ok := MustGetCaller(c)
		if !ok {
			return
		}
		askerID = caller.ID
	}

	list, total, err := h.questionSvc.List(c.Request.Context(), askerID, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无问题")
}

// Get 问题详情
// GET /api/v1/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	q, err := h.questionSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, q)
}

// Search 按关键词搜索问题标题与正文
// GET /api/v1/questions/search?q=
func (h *QuestionHandler) Search(c *gin.Context) {
	var req dto.QuestionSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.questionSvc.Search(c.Request.Context(), req.Q, &req.PaginationRequest)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "没有匹配的问题")
}

// Top 回答最多的问题
// GET /api/v1/questions/top
func (h *QuestionHandler) Top(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.questionSvc.Top(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无问题")
}

// UpdateQuestion 修改问题
// PATCH /api/v1/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	q, err := h.questionSvc.Update(c.Request.Context(), id, caller, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, q)
}

// DeleteQuestion 删除问题及其回答
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	if err := h.questionSvc.Delete(c.Request.Context(), id, caller); err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OKWithMessage(c, "问题已删除", nil)
}

// VoteQuestion 问题投票
// POST /api/v1/questions/:id/vote
func (h *QuestionHandler) VoteQuestion(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	v, err := h.questionSvc.Vote(c.Request.Context(), id, caller, req.Direction)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, v)
}

// Answer 回答问题
// POST /api/v1/questions/:id/answers
func (h *QuestionHandler) Answer(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.AnswerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.questionSvc.AnswerQuestion(c.Request.Context(), id, caller, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.Created(c, "回答已发布", a)
}

// ListAnswers 问题下的回答
// GET /api/v1/questions/:id/answers
func (h *QuestionHandler) ListAnswers(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.questionSvc.ListAnswers(c.Request.Context(), id, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "该问题暂无回答")
}

// ── 答案 ──

// ListMyAnswers 我的回答
// GET /api/v1/answers/me
func (h *QuestionHandler) ListMyAnswers(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.answerSvc.ListMine(c.Request.Context(), caller.ID, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无回答")
}

// GetAnswer 答案详情（计入浏览数）
// GET /api/v1/answers/:id
func (h *QuestionHandler) GetAnswer(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	a, err := h.answerSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, a)
}

// UpdateAnswer 修改自己的答案
// PATCH /api/v1/answers/:id
func (h *QuestionHandler) UpdateAnswer(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.answerSvc.Update(c.Request.Context(), id, caller, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, a)
}

// DeleteAnswer 删除答案
// DELETE /api/v1/answers/:id
func (h *QuestionHandler) DeleteAnswer(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	if err := h.answerSvc.Delete(c.Request.Context(), id, caller); err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OKWithMessage(c, "答案已删除", nil)
}

// Vote 答案投票，同向再投视为撤销
// POST /api/v1/answers/:id/vote
func (h *QuestionHandler) Vote(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	v, err := h.answerSvc.Vote(c.Request.Context(), id, caller, req.Direction)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, v)
}

func (h *QuestionHandler) handleQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		response.NotFound(c, 14001, "问题不存在")
	case errors.Is(err, service.ErrAnswerNotFound):
		response.NotFound(c, 14002, "答案不存在")
	case errors.Is(err, service.ErrEmptyQuestion):
		response.BadRequest(c, 14003, "问题标题和内容不能为空")
	case errors.Is(err, service.ErrEmptyAnswer):
		response.BadRequest(c, 14004, "答案内容不能为空")
	case errors.Is(err, service.ErrInvalidVote):
		response.BadRequest(c, 14005, "投票方向只能为 1 或 -1")
	case errors.Is(err, service.ErrEmptyKeyword):
		response.BadRequest(c, 14006, "搜索关键词不能为空")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14007, "并发操作冲突，请重试")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
