package repository

import (
	"context"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
	pkgerrors "pisqre/backend/pkg/errors"
)

// LinkFilters 派发记录过滤条件
type LinkFilters struct {
	AssignmentID string
	TutorID      string
	Accepted     *bool
	Rejected     *bool
}

// TutorAssignmentLinkRepository 作业派发记录数据访问接口
type TutorAssignmentLinkRepository interface {
	Create(ctx context.Context, link *model.TutorAssignmentLink) error
	// GetLatestByPair 按 (作业, 导师) 查找最新一条派发记录
	GetLatestByPair(ctx context.Context, assignmentID, tutorID string) (*model.TutorAssignmentLink, error)
	// List limit<=0 时不分页
	List(ctx context.Context, filters *LinkFilters, offset, limit int) ([]model.TutorAssignmentLink, int64, error)
	CountByAssignment(ctx context.Context, assignmentID string) (int64, error)
	// Update 基于 version 的比较并交换；同一作业出现第二个 accepted 时返回 gorm.ErrDuplicatedKey
	Update(ctx context.Context, link *model.TutorAssignmentLink) error
}

type linkRepo struct {
	db *gorm.DB
}

// NewTutorAssignmentLinkRepo 创建 TutorAssignmentLinkRepository 实例
func NewTutorAssignmentLinkRepo(db *gorm.DB) TutorAssignmentLinkRepository {
	return &linkRepo{db: db}
}

func (r *linkRepo) Create(ctx context.Context, link *model.TutorAssignmentLink) error {
	if link.Version == 0 {
		link.Version = 1
	}
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *linkRepo) GetLatestByPair(ctx context.Context, assignmentID, tutorID string) (*model.TutorAssignmentLink, error) {
	var link model.TutorAssignmentLink
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND tutor_id = ?", assignmentID, tutorID).
		Order("created_at DESC").
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *linkRepo) List(ctx context.Context, filters *LinkFilters, offset, limit int) ([]model.TutorAssignmentLink, int64, error) {
	var links []model.TutorAssignmentLink
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TutorAssignmentLink{})
	if filters != nil {
		if filters.AssignmentID != "" {
			db = db.Where("assignment_id = ?", filters.AssignmentID)
		}
		if filters.TutorID != "" {
			db = db.Where("tutor_id = ?", filters.TutorID)
		}
		if filters.Accepted != nil {
			db = db.Where("accepted = ?", *filters.Accepted)
		}
		if filters.Rejected != nil {
			db = db.Where("rejected = ?", *filters.Rejected)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Assignment").Preload("Tutor").Order("created_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func (r *linkRepo) CountByAssignment(ctx context.Context, assignmentID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.TutorAssignmentLink{}).
		Where("assignment_id = ?", assignmentID).
		Count(&total).Error
	return total, err
}

func (r *linkRepo) Update(ctx context.Context, link *model.TutorAssignmentLink) error {
	oldVersion := link.Version
	result := r.db.WithContext(ctx).
		Model(&model.TutorAssignmentLink{}).
		Where("link_id = ? AND version = ?", link.LinkID, oldVersion).
		Updates(map[string]interface{}{
			"accepted":   link.Accepted,
			"rejected":   link.Rejected,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	link.Version = oldVersion + 1
	return nil
}
