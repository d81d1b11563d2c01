package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"pisqre/backend/config"
	pkgerrors "pisqre/backend/pkg/errors"
)

// AssignmentMail 作业相关邮件的固定载荷
type AssignmentMail struct {
	To            string
	RecipientName string
	CourseName    string
	ExternalID    string
	Amount        float64
}

// BookingMail 预约确认邮件载荷
type BookingMail struct {
	To          string
	StudentName string
	TutorName   string
	CourseName  string
	Description string
	Duration    string
	SessionType string
	Price       float64
	StartAt     time.Time
}

// Dialer 抽象 SMTP 投递，便于测试替换
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender SMTP 邮件发送器
//
// 所有投递经过熔断器：连续失败后在 open 期间快速失败，
// 调用方只记录日志，不影响主流程。
type Sender struct {
	from    string
	dialer  Dialer
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

// NewSender 根据配置创建发送器
func NewSender(cfg *config.MailConfig, logger *zap.Logger) *Sender {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return NewSenderWithDialer(cfg.From, d, cfg.Timeout, logger)
}

// NewSenderWithDialer 使用自定义 Dialer 创建发送器
func NewSenderWithDialer(from string, dialer Dialer, openTimeout time.Duration, logger *zap.Logger) *Sender {
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("邮件熔断器状态变更",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Sender{
		from:    from,
		dialer:  dialer,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
		logger:  logger,
	}
}

// SendTutorAssigned 通知导师作业已分配给他
func (s *Sender) SendTutorAssigned(ctx context.Context, msg AssignmentMail) error {
	return s.send(ctx, msg.To, "A New Assignment Has Been Assigned to You", tutorAssignedTmpl, msg)
}

// SendAssignmentAnswered 通知发布者作业已被解答
func (s *Sender) SendAssignmentAnswered(ctx context.Context, msg AssignmentMail) error {
	return s.send(ctx, msg.To, "Your Assignment Has Been Answered", assignmentAnsweredTmpl, msg)
}

// SendBookingConfirmed 向学生确认预约成功
func (s *Sender) SendBookingConfirmed(ctx context.Context, msg BookingMail) error {
	return s.send(ctx, msg.To, "Your Session Booking Is Confirmed", bookingConfirmedTmpl, msg)
}

func (s *Sender) send(ctx context.Context, to, subject string, tmpl *template.Template, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("收件人为空")
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("渲染邮件模板失败: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.dialer.DialAndSend(m)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", pkgerrors.ErrDependencyUnavailable, err)
		}
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	s.logger.Debug("邮件发送成功", zap.String("to", to), zap.String("subject", subject))
	return nil
}
