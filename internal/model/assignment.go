package model

import (
	"fmt"
	"time"
)

// AssignmentStatus 作业状态
type AssignmentStatus string

const (
	AssignmentSubmitted          AssignmentStatus = "submitted"
	AssignmentSentToTutor        AssignmentStatus = "sent_to_tutor"
	AssignmentAssignedToTutor    AssignmentStatus = "assigned_to_tutor"
	AssignmentAnswerSubmitted    AssignmentStatus = "answer_submitted"
	AssignmentCompleted          AssignmentStatus = "completed"
	AssignmentAnswerVerification AssignmentStatus = "answer_verification"
)

// assignmentTransitions 合法状态迁移表（from → 允许的 to）
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentSubmitted:       {AssignmentSentToTutor, AssignmentAssignedToTutor},
	AssignmentSentToTutor:     {AssignmentSentToTutor, AssignmentAssignedToTutor},
	AssignmentAssignedToTutor: {AssignmentAnswerSubmitted, AssignmentCompleted},
	AssignmentAnswerSubmitted: {AssignmentAnswerVerification},
	AssignmentCompleted:       {AssignmentAnswerVerification},
}

// CanTransitionTo 判断当前状态能否迁移到 next
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, to := range assignmentTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Answered 是否已进入答题后阶段
func (s AssignmentStatus) Answered() bool {
	switch s {
	case AssignmentAnswerSubmitted, AssignmentCompleted, AssignmentAnswerVerification:
		return true
	}
	return false
}

// UnansweredStatuses 尚未提交答案的状态集合
func UnansweredStatuses() []AssignmentStatus {
	return []AssignmentStatus{AssignmentSubmitted, AssignmentSentToTutor, AssignmentAssignedToTutor}
}

// Assignment 作业表，对应 assignments
//
// Status 为 assigned_to_tutor 时 AssignedTutorID 必有值；
// 展示用的 "assigned to {name}" 在读取时由导师姓名拼出，不落库。
type Assignment struct {
	AssignmentID    string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	CourseName      string           `gorm:"type:varchar(100);not null"                     json:"course_name"`
	Description     string           `gorm:"type:text;not null"                             json:"description"`
	Amount          float64          `gorm:"type:numeric(10,2);not null"                    json:"amount"`
	Deadline        time.Time        `gorm:"not null"                                       json:"deadline"`
	PosterID        string           `gorm:"type:uuid;not null"                             json:"poster_id"`
	ExternalID      string           `gorm:"type:varchar(16);not null"                      json:"external_id"`
	Status          AssignmentStatus `gorm:"type:varchar(30);not null;default:'submitted'"  json:"status"`
	AssignedTutorID *string          `gorm:"type:uuid"                                      json:"assigned_tutor_id,omitempty"`
	AnswerVerified  bool             `gorm:"not null;default:false"                         json:"answer_verified"`
	VersionedModel

	// 关联
	Poster        *User  `gorm:"foreignKey:PosterID;references:UserID"         json:"poster,omitempty"`
	AssignedTutor *Tutor `gorm:"foreignKey:AssignedTutorID;references:TutorID" json:"assigned_tutor,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

// StatusLabel 兼容旧客户端的状态文案
func (a *Assignment) StatusLabel() string {
	if a.Status == AssignmentAssignedToTutor && a.AssignedTutor != nil {
		return fmt.Sprintf("assigned to %s", a.AssignedTutor.FullName)
	}
	return string(a.Status)
}
