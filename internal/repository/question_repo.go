package repository

import (
	"context"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
)

// QuestionFilters 问题过滤条件
type QuestionFilters struct {
	AskerID string
	// Keyword 在标题与正文中做不区分大小写的子串匹配
	Keyword string
	Sort    string
}

var questionSortColumns = map[string]string{
	"answers":    "answers",
	"votes":      "votes",
	"created_at": "created_at",
}

// QuestionRepository 问题数据访问接口
type QuestionRepository interface {
	Create(ctx context.Context, question *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	List(ctx context.Context, filters *QuestionFilters, offset, limit int) ([]model.Question, int64, error)
	UpdateContent(ctx context.Context, question *model.Question) error
	// Delete 软删除问题及其全部回答
	Delete(ctx context.Context, id string) error
	IncrAnswers(ctx context.Context, id string, delta int) error
}

type questionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo 创建 QuestionRepository 实例
func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) Create(ctx context.Context, question *model.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var question model.Question
	err := r.db.WithContext(ctx).
		Where("question_id = ?", id).
		First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) List(ctx context.Context, filters *QuestionFilters, offset, limit int) ([]model.Question, int64, error) {
	var questions []model.Question
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Question{})
	sort := ""
	if filters != nil {
		if filters.AskerID != "" {
			db = db.Where("asker_id = ?", filters.AskerID)
		}
		if filters.Keyword != "" {
			pattern := likePattern(filters.Keyword)
			db = db.Where(`(title ILIKE ? ESCAPE '\' OR body ILIKE ? ESCAPE '\')`, pattern, pattern)
		}
		sort = filters.Sort
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order(orderClause(sort, questionSortColumns, "created_at DESC")).
		Order("created_at DESC").
		Find(&questions).Error
	return questions, total, err
}

func (r *questionRepo) UpdateContent(ctx context.Context, question *model.Question) error {
	result := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("question_id = ?", question.QuestionID).
		Updates(map[string]interface{}{
			"title":      question.Title,
			"body":       question.Body,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.Answer{}).Error; err != nil {
			return err
		}
		result := tx.Where("question_id = ?", id).Delete(&model.Question{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *questionRepo) IncrAnswers(ctx context.Context, id string, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("question_id = ?", id).
		UpdateColumn("answers", gorm.Expr("answers + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
