package model

// NotificationType 通知类型（封闭集合，新增类型需同步通知服务的消息模板）
type NotificationType string

const (
	NotifyAssignmentReceived NotificationType = "assignment_received"
	NotifyAssignmentOffered  NotificationType = "assignment_offered"
	NotifyAssignmentAssigned NotificationType = "assignment_assigned"
	NotifyAssignmentAnswered NotificationType = "assignment_answered"
	NotifyAnswerVerified     NotificationType = "answer_verified"
	NotifyQuestionAnswered   NotificationType = "question_answered"
)

// Notification 通知消息表，对应 notifications
type Notification struct {
	NotificationID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	RecipientID    string           `gorm:"type:uuid;not null"                             json:"recipient_id"`
	Type           NotificationType `gorm:"type:varchar(50);not null"                      json:"type"`
	Message        string           `gorm:"type:text;not null"                             json:"message"`
	AssignmentID   *string          `gorm:"type:uuid"                                      json:"assignment_id,omitempty"`
	QuestionID     *string          `gorm:"type:uuid"                                      json:"question_id,omitempty"`
	AnswerID       *string          `gorm:"type:uuid"                                      json:"answer_id,omitempty"`
	IsRead         bool             `gorm:"not null;default:false"                         json:"is_read"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
