package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// AsTutor 为 true 时按导师账号登录
	AsTutor bool `json:"as_tutor"`
}

// RegisterRequest 学生注册请求
type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Email    string `json:"email"     binding:"required,email"`
	Password string `json:"password"  binding:"required,min=8,max=64"`
}

// RegisterTutorRequest 导师注册请求（注册后需管理员审核）
type RegisterTutorRequest struct {
	FullName string  `json:"full_name" binding:"required,min=2,max=100"`
	Email    string  `json:"email"     binding:"required,email"`
	Password string  `json:"password"  binding:"required,min=8,max=64"`
	Price    float64 `json:"price"     binding:"omitempty,gte=0"`
}

// LogoutRequest 注销请求，刷新令牌可选
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
