package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	pkgerrors "pisqre/backend/pkg/errors"
)

// castVote 记录 userID 对对象的一票：首次投票计入，同向重复投票撤销，反向投票改投。
// 返回调用者当前的票，0 表示已撤销。
func castVote(ctx context.Context, repo *repository.Repository, logger *zap.Logger,
	objectType model.VoteObject, objectID, userID string, direction int) (int, error) {
	if direction != 1 && direction != -1 {
		return 0, ErrInvalidVote
	}

	prev := 0
	existing, err := repo.Vote.Get(ctx, objectID, userID)
	switch {
	case err == nil:
		prev = existing.VoteType
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		logger.Error("查询投票记录失败", zap.String("object_id", objectID), zap.Error(err))
		return 0, err
	}

	change := repository.VoteChange{
		ObjectType: objectType,
		ObjectID:   objectID,
		UserID:     userID,
		Prev:       prev,
		Next:       model.NextVote(prev, direction),
	}
	if err := repo.Vote.Apply(ctx, change); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("写入投票失败",
				zap.String("object_type", string(objectType)),
				zap.String("object_id", objectID),
				zap.Error(err),
			)
		}
		return 0, err
	}
	return change.Next, nil
}
