package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
	pkgerrors "pisqre/backend/pkg/errors"
)

// ScheduleFilters 时段过滤条件，From/To 约束开始时间落在 [From, To)
type ScheduleFilters struct {
	TutorID string
	From    *time.Time
	To      *time.Time
	Booked  *bool
}

// ScheduleRepository 导师时段数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	BatchCreate(ctx context.Context, schedules []model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	// List limit<=0 时不分页，按开始时间升序
	List(ctx context.Context, filters *ScheduleFilters, offset, limit int) ([]model.Schedule, int64, error)
	// HasOverlap 导师是否已有与 [start, end) 相交的时段，excludeID 非空时排除该时段
	HasOverlap(ctx context.Context, tutorID string, start, end time.Time, excludeID string) (bool, error)
	// WeeklySummary 按 ISO 周统计 [from, to) 内的时段数与已预约数，tutorID 为空时统计全部导师
	WeeklySummary(ctx context.Context, tutorID string, from, to time.Time) ([]model.WeekCount, error)
	// Update 基于 version 的比较并交换
	Update(ctx context.Context, schedule *model.Schedule) error
	Delete(ctx context.Context, id string) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error {
	if schedule.Version == 0 {
		schedule.Version = 1
	}
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepo) BatchCreate(ctx context.Context, schedules []model.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	for i := range schedules {
		if schedules[i].Version == 0 {
			schedules[i].Version = 1
		}
	}
	return r.db.WithContext(ctx).Create(&schedules).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Preload("Tutor").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) List(ctx context.Context, filters *ScheduleFilters, offset, limit int) ([]model.Schedule, int64, error) {
	var schedules []model.Schedule
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Schedule{})
	if filters != nil {
		if filters.TutorID != "" {
			db = db.Where("tutor_id = ?", filters.TutorID)
		}
		if filters.From != nil {
			db = db.Where("start_at >= ?", *filters.From)
		}
		if filters.To != nil {
			db = db.Where("start_at < ?", *filters.To)
		}
		if filters.Booked != nil {
			db = db.Where("booked = ?", *filters.Booked)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Order("start_at ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&schedules).Error; err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

func (r *scheduleRepo) HasOverlap(ctx context.Context, tutorID string, start, end time.Time, excludeID string) (bool, error) {
	var n int64
	db := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("tutor_id = ? AND start_at < ? AND end_at > ?", tutorID, end, start)
	if excludeID != "" {
		db = db.Where("schedule_id <> ?", excludeID)
	}
	if err := db.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *scheduleRepo) WeeklySummary(ctx context.Context, tutorID string, from, to time.Time) ([]model.WeekCount, error) {
	var out []model.WeekCount
	db := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Select(`EXTRACT(ISOYEAR FROM start_at)::int AS year,
			EXTRACT(WEEK FROM start_at)::int AS week,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE booked) AS booked`).
		Where("start_at >= ? AND start_at < ?", from, to)
	if tutorID != "" {
		db = db.Where("tutor_id = ?", tutorID)
	}
	err := db.Group("year, week").
		Order("total DESC, year ASC, week ASC").
		Scan(&out).Error
	return out, err
}

func (r *scheduleRepo) Update(ctx context.Context, schedule *model.Schedule) error {
	oldVersion := schedule.Version
	result := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("schedule_id = ? AND version = ?", schedule.ScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"start_at":   schedule.StartAt,
			"end_at":     schedule.EndAt,
			"booked":     schedule.Booked,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version = oldVersion + 1
	return nil
}

func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	// 已预约的时段不可删除
	result := r.db.WithContext(ctx).
		Where("schedule_id = ? AND NOT booked", id).
		Delete(&model.Schedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
