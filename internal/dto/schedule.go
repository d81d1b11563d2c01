package dto

import "time"

// ── 时段与预约模块 DTO ──

// CreateScheduleRequest 导师发布可预约时段
type CreateScheduleRequest struct {
	StartAt time.Time `json:"start_at" binding:"required"`
	EndAt   time.Time `json:"end_at"   binding:"required"`
}

// BatchCreateScheduleRequest 批量发布时段
type BatchCreateScheduleRequest struct {
	Schedules []CreateScheduleRequest `json:"schedules" binding:"required,min=1,max=50,dive"`
}

// UpdateScheduleRequest 修改未被预约的时段
type UpdateScheduleRequest struct {
	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`
}

// ScheduleRangeRequest 按时间范围查询某导师时段，From/To 为 RFC3339
type ScheduleRangeRequest struct {
	From time.Time `form:"from" binding:"required"`
	To   time.Time `form:"to"   binding:"required"`
}

// WeeklyPlanRequest 周统计参数，Year 缺省为当年
type WeeklyPlanRequest struct {
	Year int `form:"year" binding:"omitempty,min=2000,max=2100"`
}

// ScheduleResponse 时段响应
type ScheduleResponse struct {
	ID        string `json:"id"`
	TutorID   string `json:"tutor_id"`
	TutorName string `json:"tutor_name,omitempty"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	Booked    bool   `json:"booked"`
	Version   int    `json:"version"`
}

// WeekCountResponse 周统计
type WeekCountResponse struct {
	Year          int `json:"year"`
	Week          int `json:"week"`
	NumOfSchedule int `json:"num_of_schedule"`
	Booked        int `json:"booked"`
}

// CreateBookingRequest 学生预约时段
type CreateBookingRequest struct {
	ScheduleID  string `json:"schedule_id"  binding:"required,uuid"`
	CourseName  string `json:"course_name"  binding:"required,max=100"`
	Description string `json:"description"  binding:"required"`
	Duration    string `json:"duration"     binding:"required,oneof=1hour 2hours"`
	SessionType string `json:"session_type" binding:"required,oneof=live_session demo"`
}

// UpdateBookingRequest 修改预约信息，时段与时长不可改
type UpdateBookingRequest struct {
	CourseName  *string `json:"course_name"  binding:"omitempty,max=100"`
	Description *string `json:"description"`
	SessionType *string `json:"session_type" binding:"omitempty,oneof=live_session demo"`
}

// BookingResponse 预约响应
type BookingResponse struct {
	ID          string            `json:"id"`
	ScheduleID  string            `json:"schedule_id"`
	TutorID     string            `json:"tutor_id"`
	TutorName   string            `json:"tutor_name,omitempty"`
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name,omitempty"`
	CourseName  string            `json:"course_name"`
	Description string            `json:"description"`
	Duration    string            `json:"duration"`
	SessionType string            `json:"session_type"`
	Price       float64           `json:"price"`
	Schedule    *ScheduleResponse `json:"schedule,omitempty"`
	CreatedAt   string            `json:"created_at"`
}
