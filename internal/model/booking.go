package model

import "time"

// BookingDuration 预约时长
type BookingDuration string

const (
	BookingOneHour  BookingDuration = "1hour"
	BookingTwoHours BookingDuration = "2hours"
)

// Hours 计费小时数，非法值返回 0
func (d BookingDuration) Hours() int {
	switch d {
	case BookingOneHour:
		return 1
	case BookingTwoHours:
		return 2
	}
	return 0
}

// Span 对应的时间长度
func (d BookingDuration) Span() time.Duration { return time.Duration(d.Hours()) * time.Hour }

// SessionType 课程形式
type SessionType string

const (
	SessionLive SessionType = "live_session"
	SessionDemo SessionType = "demo"
)

// Valid 校验课程形式
func (t SessionType) Valid() bool { return t == SessionLive || t == SessionDemo }

// Booking 预约表，对应 bookings
type Booking struct {
	BookingID   string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"booking_id"`
	ScheduleID  string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"schedule_id"`
	TutorID     string          `gorm:"type:uuid;not null;index"                       json:"tutor_id"`
	StudentID   string          `gorm:"type:uuid;not null;index"                       json:"student_id"`
	CourseName  string          `gorm:"type:varchar(100);not null"                     json:"course_name"`
	Description string          `gorm:"type:text;not null"                             json:"description"`
	Duration    BookingDuration `gorm:"type:varchar(10);not null"                      json:"duration"`
	SessionType SessionType     `gorm:"type:varchar(20);not null"                      json:"session_type"`
	Price       float64         `gorm:"type:numeric(10,2);not null"                    json:"price"`
	BaseModel

	// 关联
	Schedule *Schedule `gorm:"foreignKey:ScheduleID;references:ScheduleID" json:"schedule,omitempty"`
	Tutor    *Tutor    `gorm:"foreignKey:TutorID;references:TutorID"       json:"tutor,omitempty"`
	Student  *User     `gorm:"foreignKey:StudentID;references:UserID"      json:"student,omitempty"`
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }
