package model

// LinkDecision 导师对派发作业的处理决定
type LinkDecision string

const (
	DecisionAccept LinkDecision = "accept"
	DecisionReject LinkDecision = "reject"
)

// TutorAssignmentLink 作业派发记录表，对应 tutor_assignment_links
// Accepted 与 Rejected 至多一个为 true
type TutorAssignmentLink struct {
	LinkID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"link_id"`
	AssignmentID string `gorm:"type:uuid;not null;index"                       json:"assignment_id"`
	TutorID      string `gorm:"type:uuid;not null;index"                       json:"tutor_id"`
	Accepted     bool   `gorm:"not null;default:false"                         json:"accepted"`
	Rejected     bool   `gorm:"not null;default:false"                         json:"rejected"`
	Version      int    `gorm:"not null;default:1"                             json:"version"`
	BaseModel

	// 关联
	Assignment *Assignment `gorm:"foreignKey:AssignmentID;references:AssignmentID" json:"assignment,omitempty"`
	Tutor      *Tutor      `gorm:"foreignKey:TutorID;references:TutorID"           json:"tutor,omitempty"`
}

// TableName 指定表名
func (TutorAssignmentLink) TableName() string { return "tutor_assignment_links" }

// Apply 写入决定，两个标志位同时改写
func (l *TutorAssignmentLink) Apply(d LinkDecision) {
	l.Accepted = d == DecisionAccept
	l.Rejected = d == DecisionReject
}
