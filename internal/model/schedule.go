package model

import "time"

// Schedule 导师可预约时段表，对应 schedules
// Booked 只通过版本号 CAS 翻转，一个时段至多对应一条预约
type Schedule struct {
	ScheduleID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	TutorID    string    `gorm:"type:uuid;not null;index"                       json:"tutor_id"`
	StartAt    time.Time `gorm:"not null"                                       json:"start_at"`
	EndAt      time.Time `gorm:"not null"                                       json:"end_at"`
	Booked     bool      `gorm:"not null;default:false"                         json:"booked"`
	Version    int       `gorm:"not null;default:1"                             json:"version"`
	BaseModel

	// 关联
	Tutor *Tutor `gorm:"foreignKey:TutorID;references:TutorID" json:"tutor,omitempty"`
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

// Duration 时段长度
func (s *Schedule) Duration() time.Duration { return s.EndAt.Sub(s.StartAt) }

// Overlaps 两个时段是否相交，首尾相接不算
func (s *Schedule) Overlaps(start, end time.Time) bool {
	return s.StartAt.Before(end) && start.Before(s.EndAt)
}

// WeekCount 按周聚合的时段统计
type WeekCount struct {
	Year   int `json:"year"`
	Week   int `json:"week"`
	Total  int `json:"total"`
	Booked int `json:"booked"`
}
