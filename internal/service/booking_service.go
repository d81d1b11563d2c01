package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	pkgerrors "pisqre/backend/pkg/errors"
	"pisqre/backend/pkg/mail"
	"pisqre/backend/pkg/metrics"
)

// ── 预约模块业务错误 ──

var (
	ErrBookingNotFound         = errors.New("预约不存在")
	ErrScheduleAlreadyBooked   = errors.New("该时段已被预约")
	ErrScheduleStarted         = errors.New("时段已开始，无法预约")
	ErrInvalidDuration         = errors.New("预约时长只能为 1hour 或 2hours")
	ErrInvalidSessionType      = errors.New("课程形式只能为 live_session 或 demo")
	ErrDurationExceedsSchedule = errors.New("预约时长超过时段长度")
)

// BookingService 学生预约导师时段
//
// 预约先以 CAS 把时段标记为已预约，再写入预约记录；
// 同一时段并发预约只有一个成功，其余返回 ErrScheduleAlreadyBooked。
type BookingService interface {
	Book(ctx context.Context, student Caller, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	// Get 预约学生、对应导师或管理员可见
	Get(ctx context.Context, id string, caller Caller) (*dto.BookingResponse, error)
	ListAll(ctx context.Context, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error)
	ListForTutor(ctx context.Context, tutorID string, caller Caller, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error)
	ListMine(ctx context.Context, studentID string, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error)
	Update(ctx context.Context, id string, caller Caller, req *dto.UpdateBookingRequest) (*dto.BookingResponse, error)
	// Cancel 删除预约并释放时段
	Cancel(ctx context.Context, id string, caller Caller) error
}

type bookingService struct {
	repo    *repository.Repository
	mailer  Mailer
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(repo *repository.Repository, mailer Mailer, m *metrics.Metrics, logger *zap.Logger) BookingService {
	return &bookingService{repo: repo, mailer: mailer, metrics: m, logger: logger, now: time.Now}
}

// ────────────────────── Book ──────────────────────

func (s *bookingService) Book(ctx context.Context, student Caller, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	if student.Role == model.RoleTutor {
		return nil, ErrPermissionDenied
	}
	duration := model.BookingDuration(req.Duration)
	if duration.Hours() == 0 {
		return nil, ErrInvalidDuration
	}
	session := model.SessionType(req.SessionType)
	if !session.Valid() {
		return nil, ErrInvalidSessionType
	}
	courseName := strings.TrimSpace(req.CourseName)
	if courseName == "" {
		return nil, ErrEmptyCourseName
	}

	sc, err := s.getSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if sc.Booked {
		return nil, ErrScheduleAlreadyBooked
	}
	if !sc.StartAt.After(s.now()) {
		return nil, ErrScheduleStarted
	}
	if duration.Span() > sc.Duration() {
		return nil, ErrDurationExceedsSchedule
	}
	tutor, err := s.repo.Tutor.GetByID(ctx, sc.TutorID)
	if err != nil {
		return nil, notFoundOr(err, ErrTutorNotFound)
	}

	if err := s.setBooked(ctx, sc, true); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ScheduleID:  sc.ScheduleID,
		TutorID:     sc.TutorID,
		StudentID:   student.ID,
		CourseName:  courseName,
		Description: req.Description,
		Duration:    duration,
		SessionType: session,
		Price:       tutor.Price * float64(duration.Hours()),
	}
	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.logger.Error("保存预约失败", zap.String("schedule_id", sc.ScheduleID), zap.Error(err))
		// 预约未落库时释放时段
		if rbErr := s.setBooked(ctx, sc, false); rbErr != nil {
			s.logger.Error("释放时段失败", zap.String("schedule_id", sc.ScheduleID), zap.Error(rbErr))
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrScheduleAlreadyBooked
		}
		return nil, err
	}

	if err := s.repo.Tutor.IncrCounter(ctx, tutor.TutorID, model.TutorCounterBookings, 1); err != nil {
		s.metrics.DependencyFailure("tutor_counter")
		s.logger.Error("更新导师预约数失败", zap.String("tutor_id", tutor.TutorID), zap.Error(err))
	}

	booking.Schedule = sc
	booking.Tutor = tutor
	s.mailStudent(ctx, booking)

	s.logger.Info("预约成功",
		zap.String("booking_id", booking.BookingID),
		zap.String("schedule_id", sc.ScheduleID),
		zap.String("student_id", student.ID),
	)
	resp := toBookingResponse(booking)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *bookingService) Get(ctx context.Context, id string, caller Caller) (*dto.BookingResponse, error) {
	b, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeBooking(b, caller) {
		return nil, ErrPermissionDenied
	}
	resp := toBookingResponse(b)
	return &resp, nil
}

func (s *bookingService) ListAll(ctx context.Context, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	return s.list(ctx, nil, req)
}

func (s *bookingService) ListForTutor(ctx context.Context, tutorID string, caller Caller, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	if caller.ID != tutorID && !caller.IsAdmin() {
		return nil, 0, ErrPermissionDenied
	}
	return s.list(ctx, &repository.BookingFilters{TutorID: tutorID}, req)
}

func (s *bookingService) ListMine(ctx context.Context, studentID string, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	return s.list(ctx, &repository.BookingFilters{StudentID: studentID}, req)
}

func (s *bookingService) list(ctx context.Context, f *repository.BookingFilters, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	list, total, err := s.repo.Booking.List(ctx, f, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toBookingResponses(list), total, nil
}

// ────────────────────── Update / Cancel ──────────────────────

func (s *bookingService) Update(ctx context.Context, id string, caller Caller, req *dto.UpdateBookingRequest) (*dto.BookingResponse, error) {
	b, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.StudentID != caller.ID && !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	if req.CourseName != nil {
		name := strings.TrimSpace(*req.CourseName)
		if name == "" {
			return nil, ErrEmptyCourseName
		}
		b.CourseName = name
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.SessionType != nil {
		st := model.SessionType(*req.SessionType)
		if !st.Valid() {
			return nil, ErrInvalidSessionType
		}
		b.SessionType = st
	}

	if err := s.repo.Booking.UpdateDetails(ctx, b); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("修改预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}
	resp := toBookingResponse(b)
	return &resp, nil
}

func (s *bookingService) Cancel(ctx context.Context, id string, caller Caller) error {
	b, err := s.getBooking(ctx, id)
	if err != nil {
		return err
	}
	if !canSeeBooking(b, caller) {
		return ErrPermissionDenied
	}

	if err := s.repo.Booking.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		s.logger.Error("取消预约失败", zap.String("booking_id", id), zap.Error(err))
		return err
	}

	sc, err := s.repo.Schedule.GetByID(ctx, b.ScheduleID)
	if err != nil {
		s.logger.Error("查询预约时段失败", zap.String("schedule_id", b.ScheduleID), zap.Error(err))
	} else if err := s.setBooked(ctx, sc, false); err != nil {
		s.logger.Error("释放时段失败", zap.String("schedule_id", b.ScheduleID), zap.Error(err))
	}

	if err := s.repo.Tutor.IncrCounter(ctx, b.TutorID, model.TutorCounterBookings, -1); err != nil {
		s.metrics.DependencyFailure("tutor_counter")
		s.logger.Error("更新导师预约数失败", zap.String("tutor_id", b.TutorID), zap.Error(err))
	}

	s.logger.Info("预约已取消", zap.String("booking_id", id), zap.String("by", caller.ID))
	return nil
}

// ── 辅助方法 ──

// setBooked 以 CAS 翻转时段的预约标记，冲突后时段已处于目标状态时返回 ErrScheduleAlreadyBooked
func (s *bookingService) setBooked(ctx context.Context, sc *model.Schedule, booked bool) error {
	prev := sc.Booked
	sc.Booked = booked
	err := s.repo.Schedule.Update(ctx, sc)
	if err == nil {
		return nil
	}
	sc.Booked = prev
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		s.logger.Error("更新时段预约状态失败", zap.String("schedule_id", sc.ScheduleID), zap.Error(err))
		return err
	}

	cur, getErr := s.repo.Schedule.GetByID(ctx, sc.ScheduleID)
	if getErr != nil {
		return notFoundOr(getErr, ErrScheduleNotFound)
	}
	if booked && cur.Booked {
		return ErrScheduleAlreadyBooked
	}
	return err
}

func (s *bookingService) mailStudent(ctx context.Context, b *model.Booking) {
	if s.mailer == nil {
		return
	}
	student, err := s.repo.User.GetByID(ctx, b.StudentID)
	if err != nil {
		s.logger.Warn("查询预约学生失败，跳过邮件", zap.String("student_id", b.StudentID), zap.Error(err))
		return
	}
	b.Student = student

	err = s.mailer.SendBookingConfirmed(ctx, mail.BookingMail{
		To:          student.Email,
		StudentName: student.FullName,
		TutorName:   b.Tutor.FullName,
		CourseName:  b.CourseName,
		Description: b.Description,
		Duration:    string(b.Duration),
		SessionType: string(b.SessionType),
		Price:       b.Price,
		StartAt:     b.Schedule.StartAt,
	})
	if err != nil {
		s.metrics.DependencyFailure("email")
		s.logger.Warn("发送预约确认邮件失败", zap.String("booking_id", b.BookingID), zap.Error(err))
	}
}

func (s *bookingService) getSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	sc, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询时段失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, err
	}
	return sc, nil
}

func (s *bookingService) getBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.repo.Booking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}
	return b, nil
}

func canSeeBooking(b *model.Booking, caller Caller) bool {
	return caller.IsAdmin() || b.StudentID == caller.ID || b.TutorID == caller.ID
}
