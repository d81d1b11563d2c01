package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/service"
	pkgerrors "pisqre/backend/pkg/errors"
	"pisqre/backend/pkg/response"
)

// BookingHandler 预约 HTTP 处理器
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// Book 预约时段
// POST /api/v1/bookings
func (h *BookingHandler) Book(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	b, err := h.bookingSvc.Book(c.Request.Context(), caller, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.Created(c, "预约成功", b)
}

// Get 预约详情
// GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	b, err := h.bookingSvc.Get(c.Request.Context(), id, caller)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OK(c, b)
}

// ListAll 全部预约（管理员）
// GET /api/v1/bookings
func (h *BookingHandler) ListAll(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.bookingSvc.ListAll(c.Request.Context(), &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无预约")
}

// ListMine 我的预约
// GET /api/v1/bookings/me
func (h *BookingHandler) ListMine(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.bookingSvc.ListMine(c.Request.Context(), caller.ID, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "暂无预约")
}

// ListForTutor 某导师收到的预约
// GET /api/v1/bookings/tutors/:id
func (h *BookingHandler) ListForTutor(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.bookingSvc.ListForTutor(c.Request.Context(), id, caller, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	okPage(c, list, total, req.GetPage(), req.GetPageSize(), "该导师暂无预约")
}

// Update 修改预约信息
// PATCH /api/v1/bookings/:id
func (h *BookingHandler) Update(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	b, err := h.bookingSvc.Update(c.Request.Context(), id, caller, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OK(c, b)
}

// Cancel 取消预约并释放时段
// DELETE /api/v1/bookings/:id
func (h *BookingHandler) Cancel(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := MustParamID(c, "id")
	if !ok {
		return
	}

	if err := h.bookingSvc.Cancel(c.Request.Context(), id, caller); err != nil {
		handleBookingError(c, err)
		return
	}

	response.OKWithMessage(c, "预约已取消", nil)
}

func handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 20001, "预约不存在")
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 19001, "时段不存在")
	case errors.Is(err, service.ErrTutorNotFound):
		response.NotFound(c, 17001, "导师不存在")
	case errors.Is(err, service.ErrScheduleAlreadyBooked):
		response.Conflict(c, 20002, "该时段已被预约")
	case errors.Is(err, service.ErrScheduleStarted):
		response.Conflict(c, 20003, "时段已开始，无法预约")
	case errors.Is(err, service.ErrDurationExceedsSchedule):
		response.BadRequest(c, 20004, "预约时长超过时段长度")
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidSessionType),
		errors.Is(err, service.ErrEmptyCourseName):
		response.BadRequest(c, 20005, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20006, "时段已被其他操作修改，请重试")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
