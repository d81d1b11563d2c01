package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
)

// AssignmentQueryService 作业与派发记录的只读查询
//
// 所有列表在无结果时返回空切片与 total=0，不视为错误。
type AssignmentQueryService interface {
	ListAll(ctx context.Context, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error)
	ListForPoster(ctx context.Context, posterID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error)
	// ListForTutor 已分配给该导师的作业
	ListForTutor(ctx context.Context, tutorID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error)
	// ListUnanswered 尚未提交答案的作业，不分页
	ListUnanswered(ctx context.Context) ([]dto.AssignmentResponse, int64, error)
	// ListUnverified 已答题但未审核的作业，不分页
	ListUnverified(ctx context.Context) ([]dto.AssignmentResponse, int64, error)
	SearchByExternalID(ctx context.Context, code string) ([]dto.AssignmentResponse, int64, error)

	ListAllLinks(ctx context.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error)
	ListAccepted(ctx context.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error)
	ListRejected(ctx context.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error)
	FindLinksForAssignment(ctx context.Context, assignmentID string) ([]dto.LinkResponse, int64, error)
	FindAcceptedLinksForAssignment(ctx context.Context, assignmentID string) ([]dto.LinkResponse, int64, error)
	FindLinksForTutor(ctx context.Context, tutorID string) ([]dto.LinkResponse, int64, error)
}

type assignmentQueryService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAssignmentQueryService 创建 AssignmentQueryService 实例
func NewAssignmentQueryService(repo *repository.Repository, logger *zap.Logger) AssignmentQueryService {
	return &assignmentQueryService{repo: repo, logger: logger}
}

// ── 作业 ──

func (s *assignmentQueryService) ListAll(ctx context.Context, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error) {
	return s.listAssignments(ctx, &repository.AssignmentFilters{Sort: req.Sort}, req.GetOffset(), req.GetPageSize())
}

func (s *assignmentQueryService) ListForPoster(ctx context.Context, posterID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error) {
	return s.listAssignments(ctx, &repository.AssignmentFilters{PosterID: posterID, Sort: req.Sort}, req.GetOffset(), req.GetPageSize())
}

func (s *assignmentQueryService) ListForTutor(ctx context.Context, tutorID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error) {
	return s.listAssignments(ctx, &repository.AssignmentFilters{AssignedTutorID: tutorID, Sort: req.Sort}, req.GetOffset(), req.GetPageSize())
}

func (s *assignmentQueryService) ListUnanswered(ctx context.Context) ([]dto.AssignmentResponse, int64, error) {
	return s.listAssignments(ctx, &repository.AssignmentFilters{Statuses: model.UnansweredStatuses()}, 0, 0)
}

func (s *assignmentQueryService) ListUnverified(ctx context.Context) ([]dto.AssignmentResponse, int64, error) {
	verified := false
	return s.listAssignments(ctx, &repository.AssignmentFilters{
		Statuses:       []model.AssignmentStatus{model.AssignmentAnswerSubmitted, model.AssignmentCompleted},
		AnswerVerified: &verified,
	}, 0, 0)
}

func (s *assignmentQueryService) SearchByExternalID(ctx context.Context, code string) ([]dto.AssignmentResponse, int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return []dto.AssignmentResponse{}, 0, nil
	}
	list, err := s.repo.Assignment.SearchByExternalID(ctx, code)
	if err != nil {
		s.logger.Error("按编号搜索作业失败", zap.String("code", code), zap.Error(err))
		return nil, 0, err
	}
	return toAssignmentResponses(list), int64(len(list)), nil
}

func (s *assignmentQueryService) listAssignments(ctx context.Context, filters *repository.AssignmentFilters, offset, limit int) ([]dto.AssignmentResponse, int64, error) {
	list, total, err := s.repo.Assignment.List(ctx, filters, offset, limit)
	if err != nil {
		s.logger.Error("查询作业列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toAssignmentResponses(list), total, nil
}

// ── 派发记录 ──

func (s *assignmentQueryService) ListAllLinks(ctx context.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error) {
	return s.listLinks(ctx, &repository.LinkFilters{}, req.GetOffset(), req.GetPageSize())
}

func (s *assignmentQueryService) ListAccepted(ctx context.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error) {
	accepted := true
	return s.listLinks(ctx, &repository.LinkFilters{Accepted: &accepted}, req.GetOffset(), req.GetPageSize())
}

func (s *assignmentQueryService) ListRejected(ctx context.Context, req *dto.PaginationRequest) ([]dto.LinkResponse, int64, error) {
	rejected := true
	return s.listLinks(ctx, &repository.LinkFilters{Rejected: &rejected}, req.GetOffset(), req.GetPageSize())
}

func (s *assignmentQueryService) FindLinksForAssignment(ctx context.Context, assignmentID string) ([]dto.LinkResponse, int64, error) {
	return s.listLinks(ctx, &repository.LinkFilters{AssignmentID: assignmentID}, 0, 0)
}

func (s *assignmentQueryService) FindAcceptedLinksForAssignment(ctx context.Context, assignmentID string) ([]dto.LinkResponse, int64, error) {
	accepted := true
	return s.listLinks(ctx, &repository.LinkFilters{AssignmentID: assignmentID, Accepted: &accepted}, 0, 0)
}

func (s *assignmentQueryService) FindLinksForTutor(ctx context.Context, tutorID string) ([]dto.LinkResponse, int64, error) {
	return s.listLinks(ctx, &repository.LinkFilters{TutorID: tutorID}, 0, 0)
}

func (s *assignmentQueryService) listLinks(ctx context.Context, filters *repository.LinkFilters, offset, limit int) ([]dto.LinkResponse, int64, error) {
	list, total, err := s.repo.Link.List(ctx, filters, offset, limit)
	if err != nil {
		s.logger.Error("查询派发记录失败", zap.Error(err))
		return nil, 0, err
	}
	return toLinkResponses(list), total, nil
}
