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
)

var (
	ErrAnswerNotFound = errors.New("答案不存在")
	ErrInvalidVote    = errors.New("投票方向只能为 1 或 -1")
)

// AnswerService 答案维护接口（问答答案与作业答案）
type AnswerService interface {
	// Get 读取答案并累加浏览数
	Get(ctx context.Context, id string) (*dto.AnswerResponse, error)
	ListMine(ctx context.Context, answererID string, req *dto.PaginationRequest) ([]dto.AnswerResponse, int64, error)
	Update(ctx context.Context, id string, caller Caller, req *dto.UpdateAnswerRequest) (*dto.AnswerResponse, error)
	Delete(ctx context.Context, id string, caller Caller) error
	// Vote 每个用户对同一答案只计一票
	Vote(ctx context.Context, id string, caller Caller, direction int) (*dto.VoteResponse, error)
}

type answerService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAnswerService 创建 AnswerService 实例
func NewAnswerService(repo *repository.Repository, logger *zap.Logger) AnswerService {
	return &answerService{repo: repo, logger: logger, now: time.Now}
}

func (s *answerService) Get(ctx context.Context, id string) (*dto.AnswerResponse, error) {
	a, err := s.getAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Answer.IncrViews(ctx, id); err != nil {
		s.logger.Warn("累加浏览数失败", zap.String("answer_id", id), zap.Error(err))
	} else {
		a.Views++
	}
	resp := toAnswerResponse(a)
	return &resp, nil
}

func (s *answerService) ListMine(ctx context.Context, answererID string, req *dto.PaginationRequest) ([]dto.AnswerResponse, int64, error) {
	list, total, err := s.repo.Answer.List(ctx, &repository.AnswerFilters{AnswererID: answererID}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询我的答案失败", zap.String("answerer_id", answererID), zap.Error(err))
		return nil, 0, err
	}
	return toAnswerResponses(list), total, nil
}

func (s *answerService) Update(ctx context.Context, id string, caller Caller, req *dto.UpdateAnswerRequest) (*dto.AnswerResponse, error) {
	a, err := s.getAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.AnswererID != caller.ID {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyAnswer
	}

	a.Content = req.Content
	a.ModifiedAt = s.now()
	if err := s.repo.Answer.UpdateContent(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnswerNotFound
		}
		s.logger.Error("修改答案失败", zap.String("answer_id", id), zap.Error(err))
		return nil, err
	}
	resp := toAnswerResponse(a)
	return &resp, nil
}

func (s *answerService) Delete(ctx context.Context, id string, caller Caller) error {
	a, err := s.getAnswer(ctx, id)
	if err != nil {
		return err
	}
	if a.AnswererID != caller.ID && !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	// 作业答案是流程产物，只能由管理员删除
	if a.Kind == model.AnswerKindAssignment && !caller.IsAdmin() {
		return ErrPermissionDenied
	}

	if err := s.repo.Answer.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnswerNotFound
		}
		s.logger.Error("删除答案失败", zap.String("answer_id", id), zap.Error(err))
		return err
	}
	if a.Kind == model.AnswerKindQuestion && a.QuestionID != nil {
		if err := s.repo.Question.IncrAnswers(ctx, *a.QuestionID, -1); err != nil {
			s.logger.Error("更新问题回答数失败", zap.String("question_id", *a.QuestionID), zap.Error(err))
		}
	}
	return nil
}

func (s *answerService) Vote(ctx context.Context, id string, caller Caller, direction int) (*dto.VoteResponse, error) {
	if _, err := s.getAnswer(ctx, id); err != nil {
		return nil, err
	}
	myVote, err := castVote(ctx, s.repo, s.logger, model.VoteObjectAnswer, id, caller.ID, direction)
	if err != nil {
		return nil, notFoundOr(err, ErrAnswerNotFound)
	}
	a, err := s.getAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.VoteResponse{
		ObjectID:   id,
		ObjectType: string(model.VoteObjectAnswer),
		Votes:      a.Votes,
		MyVote:     myVote,
	}, nil
}

func (s *answerService) getAnswer(ctx context.Context, id string) (*model.Answer, error) {
	a, err := s.repo.Answer.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnswerNotFound
		}
		s.logger.Error("查询答案失败", zap.String("answer_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}
