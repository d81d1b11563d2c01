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

// ── 问答模块业务错误 ──

var (
	ErrQuestionNotFound = errors.New("问题不存在")
	ErrEmptyQuestion    = errors.New("问题标题和内容不能为空")
	ErrEmptyKeyword     = errors.New("搜索关键词不能为空")
)

// QuestionService 问答板业务接口
type QuestionService interface {
	Ask(ctx context.Context, asker Caller, req *dto.CreateQuestionRequest) (*dto.QuestionResponse, error)
	Get(ctx context.Context, id string) (*dto.QuestionResponse, error)
	// List askerID 为空时列出全部问题
	List(ctx context.Context, askerID string, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error)
	// Search 在标题与正文中查找关键词
	Search(ctx context.Context, keyword string, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error)
	// Top 按回答数降序
	Top(ctx context.Context, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error)
	// Update 仅提问者或管理员
	Update(ctx context.Context, id string, caller Caller, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error)
	// Delete 连同回答一起删除，仅提问者或管理员
	Delete(ctx context.Context, id string, caller Caller) error
	Vote(ctx context.Context, id string, caller Caller, direction int) (*dto.VoteResponse, error)

	AnswerQuestion(ctx context.Context, questionID string, answerer Caller, req *dto.AnswerQuestionRequest) (*dto.AnswerResponse, error)
	ListAnswers(ctx context.Context, questionID string, req *dto.PaginationRequest) ([]dto.AnswerResponse, int64, error)
}

type questionService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewQuestionService 创建 QuestionService 实例
func NewQuestionService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) QuestionService {
	return &questionService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func (s *questionService) Ask(ctx context.Context, asker Caller, req *dto.CreateQuestionRequest) (*dto.QuestionResponse, error) {
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)
	if title == "" || body == "" {
		return nil, ErrEmptyQuestion
	}

	q := &model.Question{
		AskerID:   asker.ID,
		AskerRole: asker.Role,
		Title:     title,
		Body:      body,
	}
	if err := s.repo.Question.Create(ctx, q); err != nil {
		s.logger.Error("创建问题失败", zap.String("asker_id", asker.ID), zap.Error(err))
		return nil, err
	}
	resp := toQuestionResponse(q)
	return &resp, nil
}

func (s *questionService) Get(ctx context.Context, id string) (*dto.QuestionResponse, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toQuestionResponse(q)
	return &resp, nil
}

func (s *questionService) List(ctx context.Context, askerID string, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	return s.list(ctx, &repository.QuestionFilters{AskerID: askerID}, req)
}

func (s *questionService) Search(ctx context.Context, keyword string, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, 0, ErrEmptyKeyword
	}
	return s.list(ctx, &repository.QuestionFilters{Keyword: keyword}, req)
}

func (s *questionService) Top(ctx context.Context, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	return s.list(ctx, &repository.QuestionFilters{Sort: "-answers"}, req)
}

func (s *questionService) list(ctx context.Context, f *repository.QuestionFilters, req *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	list, total, err := s.repo.Question.List(ctx, f, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询问题列表失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.QuestionResponse, 0, len(list))
	for i := range list {
		out = append(out, toQuestionResponse(&list[i]))
	}
	return out, total, nil
}

// ────────────────────── Update / Delete ──────────────────────

func (s *questionService) Update(ctx context.Context, id string, caller Caller, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.AskerID != caller.ID && !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	if req.Title != nil {
		q.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		q.Body = strings.TrimSpace(*req.Body)
	}
	if q.Title == "" || q.Body == "" {
		return nil, ErrEmptyQuestion
	}

	if err := s.repo.Question.UpdateContent(ctx, q); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		s.logger.Error("修改问题失败", zap.String("question_id", id), zap.Error(err))
		return nil, err
	}
	q.UpdatedAt = s.now()
	resp := toQuestionResponse(q)
	return &resp, nil
}

func (s *questionService) Delete(ctx context.Context, id string, caller Caller) error {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return err
	}
	if q.AskerID != caller.ID && !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := s.repo.Question.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		s.logger.Error("删除问题失败", zap.String("question_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("问题已删除", zap.String("question_id", id), zap.String("by", caller.ID))
	return nil
}

func (s *questionService) Vote(ctx context.Context, id string, caller Caller, direction int) (*dto.VoteResponse, error) {
	if _, err := s.getQuestion(ctx, id); err != nil {
		return nil, err
	}
	myVote, err := castVote(ctx, s.repo, s.logger, model.VoteObjectQuestion, id, caller.ID, direction)
	if err != nil {
		return nil, notFoundOr(err, ErrQuestionNotFound)
	}
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.VoteResponse{
		ObjectID:   id,
		ObjectType: string(model.VoteObjectQuestion),
		Votes:      q.Votes,
		MyVote:     myVote,
	}, nil
}

// ────────────────────── AnswerQuestion ──────────────────────

func (s *questionService) AnswerQuestion(ctx context.Context, questionID string, answerer Caller, req *dto.AnswerQuestionRequest) (*dto.AnswerResponse, error) {
	q, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyAnswer
	}

	answer := model.NewQuestionAnswer(q.QuestionID, answerer.ID, answerer.Role, req.Content, s.now())
	if err := s.repo.Answer.Create(ctx, answer); err != nil {
		s.logger.Error("保存问题答案失败", zap.String("question_id", questionID), zap.Error(err))
		return nil, err
	}

	if err := s.repo.Question.IncrAnswers(ctx, q.QuestionID, 1); err != nil {
		s.logger.Error("更新问题回答数失败", zap.String("question_id", questionID), zap.Error(err))
	}
	if answerer.Role == model.RoleTutor {
		if err := s.repo.Tutor.IncrCounter(ctx, answerer.ID, model.TutorCounterAnswers, 1); err != nil {
			s.logger.Error("更新导师答题数失败", zap.String("tutor_id", answerer.ID), zap.Error(err))
		}
	}

	if q.AskerID != answerer.ID {
		s.notifier.Emit(ctx, Notice{
			Type:        model.NotifyQuestionAnswered,
			RecipientID: q.AskerID,
			QuestionID:  q.QuestionID,
			AnswerID:    answer.AnswerID,
		})
	}

	resp := toAnswerResponse(answer)
	return &resp, nil
}

func (s *questionService) ListAnswers(ctx context.Context, questionID string, req *dto.PaginationRequest) ([]dto.AnswerResponse, int64, error) {
	if _, err := s.getQuestion(ctx, questionID); err != nil {
		return nil, 0, err
	}
	list, total, err := s.repo.Answer.List(ctx, &repository.AnswerFilters{
		Kind:       model.AnswerKindQuestion,
		QuestionID: questionID,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询问题答案失败", zap.String("question_id", questionID), zap.Error(err))
		return nil, 0, err
	}
	return toAnswerResponses(list), total, nil
}

func (s *questionService) getQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.repo.Question.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		s.logger.Error("查询问题失败", zap.String("question_id", id), zap.Error(err))
		return nil, err
	}
	return q, nil
}
