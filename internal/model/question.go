package model

// Question 问答板问题表，对应 questions
type Question struct {
	QuestionID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"question_id"`
	AskerID    string `gorm:"type:uuid;not null"                             json:"asker_id"`
	AskerRole  string `gorm:"type:varchar(20);not null"                      json:"asker_role"`
	Title      string `gorm:"type:varchar(200);not null"                     json:"title"`
	Body       string `gorm:"type:text;not null"                             json:"body"`
	Answers    int    `gorm:"not null;default:0"                             json:"answers"`
	Votes      int    `gorm:"not null;default:0"                             json:"votes"`
	SoftDeleteModel
}

// TableName 指定表名
func (Question) TableName() string { return "questions" }
