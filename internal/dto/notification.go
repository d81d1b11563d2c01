package dto

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	AssignmentID string `json:"assignment_id,omitempty"`
	QuestionID   string `json:"question_id,omitempty"`
	AnswerID     string `json:"answer_id,omitempty"`
	Read         bool   `json:"read"`
	CreatedAt    string `json:"created_at"`
}

// UnreadCountResponse 未读数
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}
