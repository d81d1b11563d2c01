package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
	pkgerrors "pisqre/backend/pkg/errors"
)

// VoteChange 一次投票变更，Prev/Next 为 0 表示无票
type VoteChange struct {
	ObjectType model.VoteObject
	ObjectID   string
	UserID     string
	Prev       int
	Next       int
}

// Delta 目标对象计票数的变化量
func (c VoteChange) Delta() int { return c.Next - c.Prev }

// VoteRepository 投票数据访问接口
type VoteRepository interface {
	Get(ctx context.Context, objectID, userID string) (*model.Vote, error)
	// Apply 在同一事务内写入投票记录并调整目标对象的 votes。
	// 投票记录已被并发修改时返回 pkgerrors.ErrOptimisticLock，目标不存在时返回 gorm.ErrRecordNotFound
	Apply(ctx context.Context, change VoteChange) error
}

type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepo 创建 VoteRepository 实例
func NewVoteRepo(db *gorm.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) Get(ctx context.Context, objectID, userID string) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.WithContext(ctx).
		Where("object_id = ? AND user_id = ?", objectID, userID).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepo) Apply(ctx context.Context, change VoteChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyVoteRecord(tx, change); err != nil {
			return err
		}
		if change.Delta() == 0 {
			return nil
		}

		var target interface{}
		var key string
		switch change.ObjectType {
		case model.VoteObjectQuestion:
			target, key = &model.Question{}, "question_id"
		case model.VoteObjectAnswer:
			target, key = &model.Answer{}, "answer_id"
		default:
			return fmt.Errorf("非法投票对象: %s", change.ObjectType)
		}
		result := tx.Model(target).
			Where(key+" = ?", change.ObjectID).
			UpdateColumn("votes", gorm.Expr("votes + ?", change.Delta()))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// applyVoteRecord 新增、撤销或改投，旧值不符时视为并发冲突
func applyVoteRecord(tx *gorm.DB, c VoteChange) error {
	var result *gorm.DB
	switch {
	case c.Prev == 0 && c.Next == 0:
		return nil
	case c.Prev == 0:
		err := tx.Create(&model.Vote{
			ObjectID:   c.ObjectID,
			ObjectType: c.ObjectType,
			UserID:     c.UserID,
			VoteType:   c.Next,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrOptimisticLock
		}
		return err
	case c.Next == 0:
		result = tx.
			Where("object_id = ? AND user_id = ? AND vote_type = ?", c.ObjectID, c.UserID, c.Prev).
			Delete(&model.Vote{})
	default:
		result = tx.Model(&model.Vote{}).
			Where("object_id = ? AND user_id = ? AND vote_type = ?", c.ObjectID, c.UserID, c.Prev).
			Updates(map[string]interface{}{
				"vote_type":  c.Next,
				"updated_at": gorm.Expr("NOW()"),
			})
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
