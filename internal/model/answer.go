package model

import "time"

// AnswerKind 答案归属类型
type AnswerKind string

const (
	AnswerKindQuestion   AnswerKind = "question"
	AnswerKindAssignment AnswerKind = "assignment"
)

// Answer 答案表，对应 answers
//
// 问答答案与作业答案共用一张表，按 Kind 区分：
// Kind=question 时仅 QuestionID 有值，Kind=assignment 时仅 AssignmentID 有值。
type Answer struct {
	AnswerID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"answer_id"`
	Kind         AnswerKind `gorm:"type:varchar(20);not null"                      json:"kind"`
	QuestionID   *string    `gorm:"type:uuid"                                      json:"question_id,omitempty"`
	AssignmentID *string    `gorm:"type:uuid"                                      json:"assignment_id,omitempty"`
	AnswererID   string     `gorm:"type:uuid;not null"                             json:"answerer_id"`
	AnswererRole string     `gorm:"type:varchar(20);not null"                      json:"answerer_role"`
	Content      string     `gorm:"type:text;not null"                             json:"content"`
	Views        int        `gorm:"not null;default:0"                             json:"views"`
	Votes        int        `gorm:"not null;default:0"                             json:"votes"`
	AnsweredAt   time.Time  `gorm:"not null"                                       json:"answered_at"`
	ModifiedAt   time.Time  `gorm:"not null"                                       json:"modified_at"`
	SoftDeleteModel
}

// TableName 指定表名
func (Answer) TableName() string { return "answers" }

// NewQuestionAnswer 构造问答答案
func NewQuestionAnswer(questionID, answererID, answererRole, content string, now time.Time) *Answer {
	return &Answer{
		Kind:         AnswerKindQuestion,
		QuestionID:   &questionID,
		AnswererID:   answererID,
		AnswererRole: answererRole,
		Content:      content,
		AnsweredAt:   now,
		ModifiedAt:   now,
	}
}

// NewAssignmentAnswer 构造作业答案
func NewAssignmentAnswer(assignmentID, answererID, answererRole, content string, now time.Time) *Answer {
	return &Answer{
		Kind:         AnswerKindAssignment,
		AssignmentID: &assignmentID,
		AnswererID:   answererID,
		AnswererRole: answererRole,
		Content:      content,
		AnsweredAt:   now,
		ModifiedAt:   now,
	}
}

// ParentID 返回答案所属的问题或作业 ID
func (a *Answer) ParentID() string {
	switch a.Kind {
	case AnswerKindQuestion:
		if a.QuestionID != nil {
			return *a.QuestionID
		}
	case AnswerKindAssignment:
		if a.AssignmentID != nil {
			return *a.AssignmentID
		}
	}
	return ""
}
