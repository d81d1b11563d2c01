package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	pkgerrors "pisqre/backend/pkg/errors"
)

// ── 时段模块业务错误 ──

var (
	ErrScheduleNotFound     = errors.New("时段不存在")
	ErrInvalidScheduleRange = errors.New("结束时间必须晚于开始时间")
	ErrScheduleInPast       = errors.New("时段开始时间必须晚于当前时间")
	ErrScheduleOverlap      = errors.New("与已有时段重叠")
	ErrScheduleBooked       = errors.New("时段已被预约，无法修改或删除")
	ErrInvalidDateRange     = errors.New("查询范围无效")
)

// maxRangeQuery 按时间范围查询时段的最大跨度
const maxRangeQuery = 92 * 24 * time.Hour

// ScheduleService 导师可预约时段
type ScheduleService interface {
	Create(ctx context.Context, tutor Caller, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	// CreateBatch 全部校验通过才写入
	CreateBatch(ctx context.Context, tutor Caller, req *dto.BatchCreateScheduleRequest) ([]dto.ScheduleResponse, error)
	Get(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	ListMine(ctx context.Context, tutorID string, req *dto.PaginationRequest) ([]dto.ScheduleResponse, int64, error)
	// ListBetween 某导师开始时间落在 [from, to) 内的时段，含已预约的
	ListBetween(ctx context.Context, tutorID string, req *dto.ScheduleRangeRequest) ([]dto.ScheduleResponse, error)
	// WeeklyPlan 导师看自己的，管理员看全部，按时段数降序
	WeeklyPlan(ctx context.Context, caller Caller, req *dto.WeeklyPlanRequest) ([]dto.WeekCountResponse, error)
	Update(ctx context.Context, id string, caller Caller, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	Delete(ctx context.Context, id string, caller Caller) error
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *scheduleService) Create(ctx context.Context, tutor Caller, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	sc := &model.Schedule{TutorID: tutor.ID, StartAt: req.StartAt.UTC(), EndAt: req.EndAt.UTC()}
	if err := s.validate(ctx, sc, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Schedule.Create(ctx, sc); err != nil {
		s.logger.Error("创建时段失败", zap.String("tutor_id", tutor.ID), zap.Error(err))
		return nil, err
	}
	resp := toScheduleResponse(sc)
	return &resp, nil
}

func (s *scheduleService) CreateBatch(ctx context.Context, tutor Caller, req *dto.BatchCreateScheduleRequest) ([]dto.ScheduleResponse, error) {
	list := make([]model.Schedule, 0, len(req.Schedules))
	for _, item := range req.Schedules {
		sc := model.Schedule{TutorID: tutor.ID, StartAt: item.StartAt.UTC(), EndAt: item.EndAt.UTC()}
		if err := s.validate(ctx, &sc, list); err != nil {
			return nil, err
		}
		list = append(list, sc)
	}
	if err := s.repo.Schedule.BatchCreate(ctx, list); err != nil {
		s.logger.Error("批量创建时段失败", zap.String("tutor_id", tutor.ID), zap.Int("count", len(list)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("批量创建时段", zap.String("tutor_id", tutor.ID), zap.Int("count", len(list)))
	return toScheduleResponses(list), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *scheduleService) Get(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	sc, err := s.getSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toScheduleResponse(sc)
	return &resp, nil
}

func (s *scheduleService) ListMine(ctx context.Context, tutorID string, req *dto.PaginationRequest) ([]dto.ScheduleResponse, int64, error) {
	list, total, err := s.repo.Schedule.List(ctx, &repository.ScheduleFilters{TutorID: tutorID}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询我的时段失败", zap.String("tutor_id", tutorID), zap.Error(err))
		return nil, 0, err
	}
	return toScheduleResponses(list), total, nil
}

func (s *scheduleService) ListBetween(ctx context.Context, tutorID string, req *dto.ScheduleRangeRequest) ([]dto.ScheduleResponse, error) {
	if !req.To.After(req.From) || req.To.Sub(req.From) > maxRangeQuery {
		return nil, ErrInvalidDateRange
	}
	if _, err := s.repo.Tutor.GetByID(ctx, tutorID); err != nil {
		return nil, notFoundOr(err, ErrTutorNotFound)
	}
	from, to := req.From.UTC(), req.To.UTC()
	list, _, err := s.repo.Schedule.List(ctx, &repository.ScheduleFilters{
		TutorID: tutorID,
		From:    &from,
		To:      &to,
	}, 0, 0)
	if err != nil {
		s.logger.Error("按时间范围查询时段失败", zap.String("tutor_id", tutorID), zap.Error(err))
		return nil, err
	}
	return toScheduleResponses(list), nil
}

func (s *scheduleService) WeeklyPlan(ctx context.Context, caller Caller, req *dto.WeeklyPlanRequest) ([]dto.WeekCountResponse, error) {
	year := req.Year
	if year == 0 {
		year = s.now().UTC().Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	tutorID := caller.ID
	if caller.IsAdmin() {
		tutorID = ""
	}
	weeks, err := s.repo.Schedule.WeeklySummary(ctx, tutorID, from, to)
	if err != nil {
		s.logger.Error("统计周时段失败", zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	out := make([]dto.WeekCountResponse, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, dto.WeekCountResponse{
			Year:          w.Year,
			Week:          w.Week,
			NumOfSchedule: w.Total,
			Booked:        w.Booked,
		})
	}
	return out, nil
}

// ────────────────────── Update / Delete ──────────────────────

func (s *scheduleService) Update(ctx context.Context, id string, caller Caller, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	sc, err := s.getSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc.TutorID != caller.ID {
		return nil, ErrPermissionDenied
	}
	if sc.Booked {
		return nil, ErrScheduleBooked
	}

	if req.StartAt != nil {
		sc.StartAt = req.StartAt.UTC()
	}
	if req.EndAt != nil {
		sc.EndAt = req.EndAt.UTC()
	}
	if err := s.validate(ctx, sc, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Schedule.Update(ctx, sc); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Warn("时段并发修改冲突", zap.String("schedule_id", id))
			return nil, err
		}
		s.logger.Error("修改时段失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, err
	}
	resp := toScheduleResponse(sc)
	return &resp, nil
}

func (s *scheduleService) Delete(ctx context.Context, id string, caller Caller) error {
	sc, err := s.getSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sc.TutorID != caller.ID && !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	if sc.Booked {
		return ErrScheduleBooked
	}
	if err := s.repo.Schedule.Delete(ctx, id); err != nil {
		// 删除条件包含未预约，读后被抢先预约时同样落到这里
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleBooked
		}
		s.logger.Error("删除时段失败", zap.String("schedule_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助方法 ──

// validate 校验时间范围，并检查与库中及同批次时段是否重叠
func (s *scheduleService) validate(ctx context.Context, sc *model.Schedule, pending []model.Schedule) error {
	if !sc.EndAt.After(sc.StartAt) {
		return ErrInvalidScheduleRange
	}
	if !sc.StartAt.After(s.now()) {
		return ErrScheduleInPast
	}
	for i := range pending {
		if pending[i].Overlaps(sc.StartAt, sc.EndAt) {
			return ErrScheduleOverlap
		}
	}
	overlap, err := s.repo.Schedule.HasOverlap(ctx, sc.TutorID, sc.StartAt, sc.EndAt, sc.ScheduleID)
	if err != nil {
		s.logger.Error("检查时段重叠失败", zap.String("tutor_id", sc.TutorID), zap.Error(err))
		return err
	}
	if overlap {
		return ErrScheduleOverlap
	}
	return nil
}

func (s *scheduleService) getSchedule(ctx context.Context, id string) (*model.Schedule, error) {
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
