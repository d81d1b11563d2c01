package model

// Tutor 导师表，对应 tutors
type Tutor struct {
	TutorID          string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tutor_id"`
	FullName         string  `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Email            string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash     string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Price            float64 `gorm:"type:numeric(10,2);not null;default:0"          json:"price"`
	AdminVerified    bool    `gorm:"not null;default:false"                         json:"admin_verified"`
	NumOfAnswers     int     `gorm:"not null;default:0"                             json:"num_of_answers"`
	NumOfBookings    int     `gorm:"not null;default:0"                             json:"num_of_bookings"`
	NumOfAssignments int     `gorm:"not null;default:0"                             json:"num_of_assignments"`
	BaseModel
}

// TableName 指定表名
func (Tutor) TableName() string { return "tutors" }

// TutorCounter 导师聚合计数字段（仅允许原子自增）
type TutorCounter string

const (
	TutorCounterAnswers     TutorCounter = "num_of_answers"
	TutorCounterBookings    TutorCounter = "num_of_bookings"
	TutorCounterAssignments TutorCounter = "num_of_assignments"
)

// Valid 校验计数字段是否在白名单内
func (c TutorCounter) Valid() bool {
	switch c {
	case TutorCounterAnswers, TutorCounterBookings, TutorCounterAssignments:
		return true
	}
	return false
}
