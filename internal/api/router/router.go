package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pisqre/backend/config"
	"pisqre/backend/internal/api/handler"
	"pisqre/backend/internal/api/middleware"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/jwt"
	"pisqre/backend/pkg/metrics"
)

// Deps 路由层依赖，Tokens/Limiter/Ping 可为 nil
type Deps struct {
	JWT     *jwt.Manager
	Tokens  middleware.TokenChecker
	Limiter middleware.RateLimiter
	Metrics *metrics.Metrics
	Ping    func(ctx context.Context) error
	Logger  *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		limit = middleware.RateLimit(deps.Limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	tutor := middleware.RoleAuth(model.RoleTutor)
	tutorOrAdmin := middleware.RoleAuth(model.RoleTutor, model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(limit)
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/register/tutor", h.Auth.RegisterTutor)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, deps.Tokens))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 作业模块
			assignments := authorized.Group("/assignments")
			{
				assignments.GET("", admin, h.Assignment.ListAll)
				assignments.POST("", h.Assignment.Create)
				assignments.GET("/me", h.Assignment.ListMine)
				assignments.GET("/search", h.Assignment.Search)
				assignments.GET("/unanswered", tutorOrAdmin, h.Assignment.ListUnanswered)
				assignments.GET("/unverified", admin, h.Assignment.ListUnverified)
				assignments.GET("/users/:id", admin, h.Assignment.ListForUser)
				assignments.GET("/tutors/:id", tutorOrAdmin, h.Assignment.ListForTutor)

				assignments.GET("/:id", h.Assignment.Get)
				assignments.PATCH("/:id", h.Assignment.Update) // 发布者或管理员（Service 层鉴权）
				assignments.DELETE("/:id", h.Assignment.Delete)

				assignments.POST("/:id/send", admin, h.Assignment.SendToTutor)
				assignments.POST("/:id/assign", admin, h.Assignment.AssignToTutor)
				assignments.POST("/:id/decision", tutor, h.Assignment.Decide)
				assignments.POST("/:id/answer", tutorOrAdmin, h.Assignment.SubmitAnswer)
				assignments.POST("/:id/verify", admin, h.Assignment.VerifyAnswer)
				assignments.GET("/:id/links", admin, h.Assignment.ListLinks)
				assignments.GET("/:id/links/accepted", admin, h.Assignment.ListAcceptedLinks)

				assignments.POST("/:id/attachments", h.Attachment.Upload(service.ParentAssignment))
				assignments.GET("/:id/attachments", h.Attachment.List(service.ParentAssignment))
				assignments.GET("/:id/attachments/:fileId", h.Attachment.Download(service.ParentAssignment))
				assignments.DELETE("/:id/attachments/:fileId", h.Attachment.Delete(service.ParentAssignment))
			}

			// 派发记录
			links := authorized.Group("/links")
			{
				links.GET("", admin, h.Link.ListAll)
				links.GET("/accepted", admin, h.Link.ListAccepted)
				links.GET("/rejected", admin, h.Link.ListRejected)
				links.GET("/tutors/:id", tutorOrAdmin, h.Link.ListForTutor)
			}

			// 问答模块
			questions := authorized.Group("/questions")
			{
				questions.GET("", h.Question.List)
				questions.POST("", h.Question.Ask)
				questions.GET("/search", h.Question.Search)
				questions.GET("/top", h.Question.Top)
				questions.GET("/:id", h.Question.Get)
				questions.PATCH("/:id", h.Question.UpdateQuestion) // 提问者或管理员（Service 层鉴权）
				questions.DELETE("/:id", h.Question.DeleteQuestion)
				questions.POST("/:id/vote", h.Question.VoteQuestion)
				questions.GET("/:id/answers", h.Question.ListAnswers)
				questions.POST("/:id/answers", h.Question.Answer)
			}

			answers := authorized.Group("/answers")
			{
				answers.GET("/me", h.Question.ListMyAnswers)
				answers.GET("/:id", h.Question.GetAnswer)
				answers.PATCH("/:id", h.Question.UpdateAnswer)
				answers.DELETE("/:id", h.Question.DeleteAnswer)
				answers.POST("/:id/vote", h.Question.Vote)

				answers.POST("/:id/attachments", h.Attachment.Upload(service.ParentAnswer))
				answers.GET("/:id/attachments", h.Attachment.List(service.ParentAnswer))
				answers.GET("/:id/attachments/:fileId", h.Attachment.Download(service.ParentAnswer))
				answers.DELETE("/:id/attachments/:fileId", h.Attachment.Delete(service.ParentAnswer))
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.GET("/:id", h.Notification.Get)
				notifications.DELETE("/:id", h.Notification.Delete)
			}

			// 导师模块
			tutors := authorized.Group("/tutors")
			{
				tutors.GET("", h.Tutor.List)
				tutors.GET("/:id", h.Tutor.Get)
				tutors.PUT("/:id/verify", admin, h.Tutor.Verify)
			}

			// 时段模块
			schedules := authorized.Group("/schedules")
			{
				schedules.POST("", tutor, h.Schedule.Create)
				schedules.POST("/batch", tutor, h.Schedule.CreateBatch)
				schedules.GET("/me", tutor, h.Schedule.ListMine)
				schedules.GET("/weekly", tutorOrAdmin, h.Schedule.WeeklyPlan)
				schedules.GET("/tutors/:id", h.Schedule.ListForTutor)
				schedules.GET("/:id", h.Schedule.Get)
				schedules.PATCH("/:id", tutor, h.Schedule.Update)
				schedules.DELETE("/:id", tutorOrAdmin, h.Schedule.Delete)
			}

			// 预约模块
			bookings := authorized.Group("/bookings")
			{
				bookings.GET("", admin, h.Booking.ListAll)
				bookings.POST("", h.Booking.Book)
				bookings.GET("/me", h.Booking.ListMine)
				bookings.GET("/tutors/:id", tutorOrAdmin, h.Booking.ListForTutor)
				bookings.GET("/:id", h.Booking.Get)
				bookings.PATCH("/:id", h.Booking.Update)
				bookings.DELETE("/:id", h.Booking.Cancel)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/assignments", admin, h.Export.ExportAssignments)
				export.GET("/deadlines.ics", tutor, h.Export.ExportDeadlines)
			}
		}
	}

	return r
}
