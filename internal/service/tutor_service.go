package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/repository"
)

var (
	ErrTutorNotFound = errors.New("导师不存在")
)

// TutorService 导师查询与审核
type TutorService interface {
	// List 可按审核状态过滤，Q 非空时按姓名搜索
	List(ctx context.Context, req *dto.TutorListRequest) ([]dto.TutorResponse, int64, error)
	Get(ctx context.Context, id string) (*dto.TutorResponse, error)
	SetVerified(ctx context.Context, id string, verified bool) (*dto.TutorResponse, error)
}

type tutorService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTutorService 创建 TutorService 实例
func NewTutorService(repo *repository.Repository, logger *zap.Logger) TutorService {
	return &tutorService{repo: repo, logger: logger}
}

func (s *tutorService) List(ctx context.Context, req *dto.TutorListRequest) ([]dto.TutorResponse, int64, error) {
	list, total, err := s.repo.Tutor.List(ctx, &repository.TutorFilters{
		Verified: req.Verified,
		Name:     strings.TrimSpace(req.Q),
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询导师列表失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.TutorResponse, 0, len(list))
	for i := range list {
		out = append(out, toTutorResponse(&list[i]))
	}
	return out, total, nil
}

func (s *tutorService) Get(ctx context.Context, id string) (*dto.TutorResponse, error) {
	t, err := s.repo.Tutor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTutorNotFound
		}
		s.logger.Error("查询导师失败", zap.String("tutor_id", id), zap.Error(err))
		return nil, err
	}
	resp := toTutorResponse(t)
	return &resp, nil
}

func (s *tutorService) SetVerified(ctx context.Context, id string, verified bool) (*dto.TutorResponse, error) {
	if err := s.repo.Tutor.SetVerified(ctx, id, verified); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTutorNotFound
		}
		s.logger.Error("更新导师审核状态失败", zap.String("tutor_id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("导师审核状态已更新", zap.String("tutor_id", id), zap.Bool("verified", verified))
	return s.Get(ctx, id)
}
