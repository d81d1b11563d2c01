package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	"pisqre/backend/pkg/metrics"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
)

// Notice 待发出的通知
//
// 不同类型使用的字段不同，见 noticeTemplates。
type Notice struct {
	Type         model.NotificationType
	RecipientID  string
	CourseName   string
	ExternalID   string
	Amount       float64
	AssignmentID string
	QuestionID   string
	AnswerID     string
}

// Notifier 通知发出方，持久化失败只记录日志，不向调用方返回错误
type Notifier interface {
	Emit(ctx context.Context, n Notice)
}

var noticeTemplates = map[model.NotificationType]func(n Notice) string{
	model.NotifyAssignmentReceived: func(n Notice) string {
		return fmt.Sprintf("We have received your assignment for %s. Your assignment code is %s.", n.CourseName, n.ExternalID)
	},
	model.NotifyAssignmentOffered: func(n Notice) string {
		return fmt.Sprintf("A new assignment for %s worth %.2f has been offered to you.", n.CourseName, n.Amount)
	},
	model.NotifyAssignmentAssigned: func(n Notice) string {
		return fmt.Sprintf("The assignment for %s (code %s) has been assigned to you.", n.CourseName, n.ExternalID)
	},
	model.NotifyAssignmentAnswered: func(n Notice) string {
		return fmt.Sprintf("Your assignment for %s (code %s) has been answered.", n.CourseName, n.ExternalID)
	},
	model.NotifyAnswerVerified: func(n Notice) string {
		return fmt.Sprintf("The answer to your assignment for %s (code %s) has been verified.", n.CourseName, n.ExternalID)
	},
	model.NotifyQuestionAnswered: func(n Notice) string {
		return "Someone has answered your question."
	},
}

// NotificationService 通知业务接口
type NotificationService interface {
	Notifier
	ListMine(ctx context.Context, recipientID string, req *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error)
	// Get 读取单条通知并标记为已读
	Get(ctx context.Context, id, callerID string) (*dto.NotificationResponse, error)
	Delete(ctx context.Context, id, callerID string) error
	UnreadCount(ctx context.Context, recipientID string) (*dto.UnreadCountResponse, error)
}

type notificationService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, metrics: m, logger: logger}
}

// ────────────────────── Emit ──────────────────────

func (s *notificationService) Emit(ctx context.Context, n Notice) {
	tmpl, ok := noticeTemplates[n.Type]
	if !ok {
		s.logger.Error("未知通知类型", zap.String("type", string(n.Type)))
		return
	}
	if n.RecipientID == "" {
		s.logger.Warn("通知缺少接收人，已丢弃", zap.String("type", string(n.Type)))
		return
	}

	record := &model.Notification{
		RecipientID:  n.RecipientID,
		Type:         n.Type,
		Message:      tmpl(n),
		AssignmentID: optional(n.AssignmentID),
		QuestionID:   optional(n.QuestionID),
		AnswerID:     optional(n.AnswerID),
	}
	if err := s.repo.Notification.Create(ctx, record); err != nil {
		s.metrics.DependencyFailure("notification")
		s.logger.Error("写入通知失败",
			zap.String("type", string(n.Type)),
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err),
		)
		return
	}
	s.metrics.NotificationEmitted(string(n.Type))
}

// ────────────────────── ListMine ──────────────────────

func (s *notificationService) ListMine(ctx context.Context, recipientID string, req *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByRecipient(ctx, recipientID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		out = append(out, toNotificationResponse(&list[i]))
	}
	return out, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *notificationService) Get(ctx context.Context, id, callerID string) (*dto.NotificationResponse, error) {
	n, err := s.getOwned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		if err := s.repo.Notification.MarkRead(ctx, id); err != nil {
			s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		n.IsRead = true
	}
	resp := toNotificationResponse(n)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *notificationService) Delete(ctx context.Context, id, callerID string) error {
	if _, err := s.getOwned(ctx, id, callerID); err != nil {
		return err
	}
	if err := s.repo.Notification.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── UnreadCount ──────────────────────

func (s *notificationService) UnreadCount(ctx context.Context, recipientID string) (*dto.UnreadCountResponse, error) {
	n, err := s.repo.Notification.CountUnread(ctx, recipientID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, err
	}
	return &dto.UnreadCountResponse{Unread: n}, nil
}

// getOwned 他人的通知一律按不存在处理
func (s *notificationService) getOwned(ctx context.Context, id, callerID string) (*model.Notification, error) {
	n, err := s.repo.Notification.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if n.RecipientID != callerID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
