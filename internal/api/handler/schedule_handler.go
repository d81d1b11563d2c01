package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/service"
	pkgerrors "pisqre/backend/pkg/errors"
	"pisqre/backend/pkg/response"
)

// ScheduleHandler 导师时段 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Create 发布时段（导师）
// POST /api/v1/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sc, err := h.scheduleSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.Created(c, "时段已发布", sc)
}

// CreateBatch 批量发布时段（导师）
// POST /api/v1/schedules/batch
func (h *ScheduleHandler) CreateBatch(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.BatchCreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.scheduleSvc.CreateBatch(c.Request.Context(), caller, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.Created(c, "时段已发布", list)
}

// Get 时段详情
// GET /api/v1/schedules/:id
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	sc, err := h.scheduleSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, sc)
}

// ListMine 我的时段（导师）
// GET /api/v1/schedules/me
func (h *ScheduleHandler) ListMine(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.scheduleSvc.ListMine(c.Request.Context(), caller.ID, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无时段")
}

// ListForTutor 某导师在时间范围内的时段
// GET /api/v1/schedules/tutors/:id?from=&to=
func (h *ScheduleHandler) ListForTutor(c *gin.Context) {
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.ScheduleRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.scheduleSvc.ListBetween(c.Request.Context(), id, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	okList(c, list, int64(len(list)), "该时间范围内暂无时段")
}

// WeeklyPlan 按周统计时段
// GET /api/v1/schedules/weekly
func (h *ScheduleHandler) WeeklyPlan(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.WeeklyPlanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	weeks, err := h.scheduleSvc.WeeklyPlan(c.Request.Context(), caller, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	okList(c, weeks, int64(len(weeks)), "暂无时段")
}

// Update 修改未被预约的时段（导师）
// PATCH /api/v1/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sc, err := h.scheduleSvc.Update(c.Request.Context(), id, caller, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, sc)
}

// Delete 删除未被预约的时段
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	if err := h.scheduleSvc.Delete(c.Request.Context(), id, caller); err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OKWithMessage(c, "时段已删除", nil)
}

func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 19001, "时段不存在")
	case errors.Is(err, service.ErrTutorNotFound):
		response.NotFound(c, 17001, "导师不存在")
	case errors.Is(err, service.ErrInvalidScheduleRange):
		response.BadRequest(c, 19002, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrScheduleInPast):
		response.BadRequest(c, 19003, "时段开始时间必须晚于当前时间")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 19004, "查询范围无效，跨度不能超过 92 天")
	case errors.Is(err, service.ErrScheduleOverlap):
		response.Conflict(c, 19005, "与已有时段重叠")
	case errors.Is(err, service.ErrScheduleBooked):
		response.Conflict(c, 19006, "时段已被预约，无法修改或删除")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 19007, "时段已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
