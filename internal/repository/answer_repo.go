package repository

import (
	"context"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
)

// AnswerFilters 答案过滤条件
type AnswerFilters struct {
	Kind         model.AnswerKind
	QuestionID   string
	AssignmentID string
	AnswererID   string
}

// AnswerRepository 答案数据访问接口
type AnswerRepository interface {
	Create(ctx context.Context, answer *model.Answer) error
	GetByID(ctx context.Context, id string) (*model.Answer, error)
	List(ctx context.Context, filters *AnswerFilters, offset, limit int) ([]model.Answer, int64, error)
	UpdateContent(ctx context.Context, answer *model.Answer) error
	Delete(ctx context.Context, id string) error
	IncrViews(ctx context.Context, id string) error
}

type answerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo 创建 AnswerRepository 实例
func NewAnswerRepo(db *gorm.DB) AnswerRepository {
	return &answerRepo{db: db}
}

func (r *answerRepo) Create(ctx context.Context, answer *model.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *answerRepo) GetByID(ctx context.Context, id string) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.WithContext(ctx).
		Where("answer_id = ?", id).
		First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepo) List(ctx context.Context, filters *AnswerFilters, offset, limit int) ([]model.Answer, int64, error) {
	var answers []model.Answer
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Answer{})
	if filters != nil {
		if filters.Kind != "" {
			db = db.Where("kind = ?", filters.Kind)
		}
		if filters.QuestionID != "" {
			db = db.Where("question_id = ?", filters.QuestionID)
		}
		if filters.AssignmentID != "" {
			db = db.Where("assignment_id = ?", filters.AssignmentID)
		}
		if filters.AnswererID != "" {
			db = db.Where("answerer_id = ?", filters.AnswererID)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Order("answered_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&answers).Error
	return answers, total, err
}

func (r *answerRepo) UpdateContent(ctx context.Context, answer *model.Answer) error {
	result := r.db.WithContext(ctx).
		Model(&model.Answer{}).
		Where("answer_id = ?", answer.AnswerID).
		Updates(map[string]interface{}{
			"content":     answer.Content,
			"modified_at": answer.ModifiedAt,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *answerRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("answer_id = ?", id).
		Delete(&model.Answer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *answerRepo) IncrViews(ctx context.Context, id string) error {
	return r.incr(ctx, id, "views", 1)
}

func (r *answerRepo) incr(ctx context.Context, id, col string, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Answer{}).
		Where("answer_id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
