package dto

import "time"

// ── 作业模块 DTO ──

// CreateAssignmentRequest 发布作业请求
type CreateAssignmentRequest struct {
	CourseName  string    `json:"course_name" binding:"required,max=100"`
	Description string    `json:"description" binding:"required"`
	Amount      float64   `json:"amount"      binding:"required,gt=0"`
	Deadline    time.Time `json:"deadline"    binding:"required"`
}

// UpdateAssignmentRequest 修改作业请求（仅 submitted 状态可改）
type UpdateAssignmentRequest struct {
	CourseName  *string    `json:"course_name" binding:"omitempty,max=100"`
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount"      binding:"omitempty,gt=0"`
	Deadline    *time.Time `json:"deadline"`
}

// TutorTargetRequest 派发/分配作业时指定导师
type TutorTargetRequest struct {
	TutorID string `json:"tutor_id" binding:"required"`
}

// DecisionRequest 导师接受或拒绝派发
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
}

// SubmitAnswerRequest 提交作业答案
type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// AssignmentListRequest 作业列表查询参数
type AssignmentListRequest struct {
	PaginationRequest
	Sort string `form:"sort" binding:"omitempty,oneof=created_at -created_at amount -amount deadline -deadline"`
}

// SearchAssignmentRequest 按对外编号搜索
type SearchAssignmentRequest struct {
	Code string `form:"code" binding:"required"`
}

// AssignmentResponse 作业响应
type AssignmentResponse struct {
	ID             string      `json:"id"`
	CourseName     string      `json:"course_name"`
	Description    string      `json:"description"`
	Amount         float64     `json:"amount"`
	Deadline       string      `json:"deadline"`
	PosterID       string      `json:"poster_id"`
	PosterName     string      `json:"poster_name,omitempty"`
	ExternalID     string      `json:"external_id"`
	Status         string      `json:"status"`
	StatusLabel    string      `json:"status_label"`
	AssignedTutor  *TutorBrief `json:"assigned_tutor,omitempty"`
	AnswerVerified bool        `json:"answer_verified"`
	Version        int         `json:"version"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

// TutorBrief 导师简要信息
type TutorBrief struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// LinkResponse 派发记录响应
type LinkResponse struct {
	ID           string              `json:"id"`
	AssignmentID string              `json:"assignment_id"`
	TutorID      string              `json:"tutor_id"`
	Accepted     bool                `json:"accepted"`
	Rejected     bool                `json:"rejected"`
	CreatedAt    string              `json:"created_at"`
	Assignment   *AssignmentResponse `json:"assignment,omitempty"`
	Tutor        *TutorBrief         `json:"tutor,omitempty"`
}

// SubmitAnswerResponse 提交答案结果
type SubmitAnswerResponse struct {
	Assignment AssignmentResponse `json:"assignment"`
	Answer     AnswerResponse     `json:"answer"`
}
