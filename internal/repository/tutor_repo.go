package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
)

// TutorFilters 导师过滤条件
type TutorFilters struct {
	Verified *bool
	// Name 按姓名做不区分大小写的子串匹配
	Name string
}

// TutorRepository 导师数据访问接口
type TutorRepository interface {
	Create(ctx context.Context, tutor *model.Tutor) error
	GetByID(ctx context.Context, id string) (*model.Tutor, error)
	GetByEmail(ctx context.Context, email string) (*model.Tutor, error)
	List(ctx context.Context, filters *TutorFilters, offset, limit int) ([]model.Tutor, int64, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	// IncrCounter 原子自增计数字段，不存在时返回 gorm.ErrRecordNotFound
	IncrCounter(ctx context.Context, id string, counter model.TutorCounter, delta int) error
}

type tutorRepo struct {
	db *gorm.DB
}

// NewTutorRepo 创建 TutorRepository 实例
func NewTutorRepo(db *gorm.DB) TutorRepository {
	return &tutorRepo{db: db}
}

func (r *tutorRepo) Create(ctx context.Context, tutor *model.Tutor) error {
	return r.db.WithContext(ctx).Create(tutor).Error
}

func (r *tutorRepo) GetByID(ctx context.Context, id string) (*model.Tutor, error) {
	var tutor model.Tutor
	err := r.db.WithContext(ctx).
		Where("tutor_id = ?", id).
		First(&tutor).Error
	if err != nil {
		return nil, err
	}
	return &tutor, nil
}

func (r *tutorRepo) GetByEmail(ctx context.Context, email string) (*model.Tutor, error) {
	var tutor model.Tutor
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&tutor).Error
	if err != nil {
		return nil, err
	}
	return &tutor, nil
}

func (r *tutorRepo) List(ctx context.Context, filters *TutorFilters, offset, limit int) ([]model.Tutor, int64, error) {
	var tutors []model.Tutor
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Tutor{})
	if filters != nil {
		if filters.Verified != nil {
			db = db.Where("admin_verified = ?", *filters.Verified)
		}
		if filters.Name != "" {
			db = db.Where(`full_name ILIKE ? ESCAPE '\'`, likePattern(filters.Name))
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&tutors).Error
	return tutors, total, err
}

func (r *tutorRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Tutor{}).
		Where("tutor_id = ?", id).
		Updates(map[string]interface{}{
			"admin_verified": verified,
			"updated_at":     gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tutorRepo) IncrCounter(ctx context.Context, id string, counter model.TutorCounter, delta int) error {
	if !counter.Valid() {
		return fmt.Errorf("非法计数字段: %s", counter)
	}
	col := string(counter)
	result := r.db.WithContext(ctx).
		Model(&model.Tutor{}).
		Where("tutor_id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
