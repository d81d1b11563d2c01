package dto

// ── 问答模块 DTO ──

// CreateQuestionRequest 提问请求
type CreateQuestionRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body"  binding:"required"`
}

// UpdateQuestionRequest 修改问题请求，未提供的字段保持不变
type UpdateQuestionRequest struct {
	Title *string `json:"title" binding:"omitempty,max=200"`
	Body  *string `json:"body"`
}

// QuestionSearchRequest 问题搜索参数
type QuestionSearchRequest struct {
	PaginationRequest
	Q string `form:"q" binding:"required,max=100"`
}

// AnswerQuestionRequest 回答问题请求
type AnswerQuestionRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateAnswerRequest 修改答案请求
type UpdateAnswerRequest struct {
	Content string `json:"content" binding:"required"`
}

// VoteRequest 投票，1 为赞同，-1 为反对；与已有投票同向时撤销
type VoteRequest struct {
	Direction int `json:"direction" binding:"required,oneof=1 -1"`
}

// VoteResponse 投票结果
type VoteResponse struct {
	ObjectID   string `json:"object_id"`
	ObjectType string `json:"object_type"`
	Votes      int    `json:"votes"`
	MyVote     int    `json:"my_vote"` // 0 表示当前未投票
}

// QuestionResponse 问题响应
type QuestionResponse struct {
	ID        string `json:"id"`
	AskerID   string `json:"asker_id"`
	AskerRole string `json:"asker_role"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Answers   int    `json:"answers"`
	Votes     int    `json:"votes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AnswerResponse 答案响应（问答答案与作业答案共用）
type AnswerResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	QuestionID   string `json:"question_id,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
	AnswererID   string `json:"answerer_id"`
	AnswererRole string `json:"answerer_role"`
	Content      string `json:"content"`
	Views        int    `json:"views"`
	Votes        int    `json:"votes"`
	AnsweredAt   string `json:"answered_at"`
	ModifiedAt   string `json:"modified_at"`
}
