package service

import (
	"go.uber.org/zap"

	"pisqre/backend/config"
	"pisqre/backend/internal/repository"
	"pisqre/backend/pkg/jwt"
	"pisqre/backend/pkg/metrics"
	"pisqre/backend/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Assignment   AssignmentService
	Query        AssignmentQueryService
	Notification NotificationService
	Question     QuestionService
	Answer       AnswerService
	Tutor        TutorService
	Attachment   AttachmentService
	Export       ExportService
	Schedule     ScheduleService
	Booking      BookingService
}

// Deps 外部依赖，Mailer 为 nil 时不发邮件
type Deps struct {
	JWT     *jwt.Manager
	Tokens  TokenStore
	Files   storage.FileStore
	Mailer  Mailer
	Metrics *metrics.Metrics
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	notifications := NewNotificationService(repo, deps.Metrics, logger)
	return &Service{
		Auth:         NewAuthService(repo, deps.JWT, deps.Tokens, logger),
		Assignment:   NewAssignmentService(cfg.Workflow, repo, notifications, deps.Mailer, deps.Metrics, logger),
		Query:        NewAssignmentQueryService(repo, logger),
		Notification: notifications,
		Question:     NewQuestionService(repo, notifications, logger),
		Answer:       NewAnswerService(repo, logger),
		Tutor:        NewTutorService(repo, logger),
		Attachment:   NewAttachmentService(repo, deps.Files, cfg.Mongo.MaxUploadBytes, logger),
		Export:       NewExportService(repo, cfg.Server.BaseURL, logger),
		Schedule:     NewScheduleService(repo, logger),
		Booking:      NewBookingService(repo, deps.Mailer, deps.Metrics, logger),
	}
}
