package repository

import (
	"context"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
	pkgerrors "pisqre/backend/pkg/errors"
)

// AssignmentFilters 作业列表过滤条件（零值字段不参与过滤）
type AssignmentFilters struct {
	PosterID        string
	AssignedTutorID string
	Statuses        []model.AssignmentStatus
	AnswerVerified  *bool
	Sort            string // created_at | -created_at | amount | -amount | deadline | -deadline
}

var assignmentSortColumns = map[string]string{
	"created_at": "created_at",
	"amount":     "amount",
	"deadline":   "deadline",
}

// AssignmentRepository 作业数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	List(ctx context.Context, filters *AssignmentFilters, offset, limit int) ([]model.Assignment, int64, error)
	// SearchByExternalID 对外编号不区分大小写的模糊匹配
	SearchByExternalID(ctx context.Context, code string) ([]model.Assignment, error)
	// Update 基于 version 的比较并交换，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, assignment *model.Assignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, assignment *model.Assignment) error {
	if assignment.Version == 0 {
		assignment.Version = 1
	}
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Poster").
		Preload("AssignedTutor").
		Where("assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) List(ctx context.Context, filters *AssignmentFilters, offset, limit int) ([]model.Assignment, int64, error) {
	var assignments []model.Assignment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Assignment{})
	sort := ""
	if filters != nil {
		if filters.PosterID != "" {
			db = db.Where("poster_id = ?", filters.PosterID)
		}
		if filters.AssignedTutorID != "" {
			db = db.Where("assigned_tutor_id = ?", filters.AssignedTutorID)
		}
		if len(filters.Statuses) > 0 {
			db = db.Where("status IN ?", filters.Statuses)
		}
		if filters.AnswerVerified != nil {
			db = db.Where("answer_verified = ?", *filters.AnswerVerified)
		}
		sort = filters.Sort
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Poster").Preload("AssignedTutor").
		Order(orderClause(sort, assignmentSortColumns, "created_at DESC"))
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepo) SearchByExternalID(ctx context.Context, code string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Poster").
		Preload("AssignedTutor").
		Where(`LOWER(external_id) LIKE LOWER(?) ESCAPE '\'`, likePattern(code)).
		Order("created_at DESC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) Update(ctx context.Context, assignment *model.Assignment) error {
	oldVersion := assignment.Version
	result := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("assignment_id = ? AND version = ?", assignment.AssignmentID, oldVersion).
		Updates(map[string]interface{}{
			"course_name":       assignment.CourseName,
			"description":       assignment.Description,
			"amount":            assignment.Amount,
			"deadline":          assignment.Deadline,
			"status":            assignment.Status,
			"assigned_tutor_id": assignment.AssignedTutorID,
			"answer_verified":   assignment.AnswerVerified,
			"updated_at":        gorm.Expr("NOW()"),
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	assignment.Version = oldVersion + 1
	return nil
}

func (r *assignmentRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		Delete(&model.Assignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
