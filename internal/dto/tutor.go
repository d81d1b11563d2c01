package dto

// TutorListRequest 导师列表查询参数
type TutorListRequest struct {
	PaginationRequest
	Verified *bool  `form:"verified"`
	Q        string `form:"q" binding:"omitempty,max=100"` // 按姓名搜索
}

// VerifyTutorRequest 管理员审核导师
type VerifyTutorRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// TutorResponse 导师响应（脱敏）
type TutorResponse struct {
	ID               string  `json:"id"`
	FullName         string  `json:"full_name"`
	Email            string  `json:"email"`
	Price            float64 `json:"price"`
	AdminVerified    bool    `json:"admin_verified"`
	NumOfAnswers     int     `json:"num_of_answers"`
	NumOfBookings    int     `json:"num_of_bookings"`
	NumOfAssignments int     `json:"num_of_assignments"`
	CreatedAt        string  `json:"created_at"`
}
