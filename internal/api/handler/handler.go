package handler

import "pisqre/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Assignment   *AssignmentHandler
	Link         *LinkHandler
	Question     *QuestionHandler
	Notification *NotificationHandler
	Tutor        *TutorHandler
	Attachment   *AttachmentHandler
	Export       *ExportHandler
	Schedule     *ScheduleHandler
	Booking      *BookingHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Assignment:   NewAssignmentHandler(svc.Assignment, svc.Query),
		Link:         NewLinkHandler(svc.Query),
		Question:     NewQuestionHandler(svc.Question, svc.Answer),
		Notification: NewNotificationHandler(svc.Notification),
		Tutor:        NewTutorHandler(svc.Tutor),
		Attachment:   NewAttachmentHandler(svc.Attachment),
		Export:       NewExportHandler(svc.Export),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Booking:      NewBookingHandler(svc.Booking),
	}
}
