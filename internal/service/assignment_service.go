package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pisqre/backend/config"
	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	pkgerrors "pisqre/backend/pkg/errors"
	"pisqre/backend/pkg/mail"
	"pisqre/backend/pkg/metrics"
)

// ── 作业模块业务错误 ──

var (
	ErrAssignmentNotFound        = errors.New("作业不存在")
	ErrLinkNotFound              = errors.New("该导师没有此作业的派发记录")
	ErrInvalidStateTransition    = errors.New("当前作业状态不允许此操作")
	ErrAssignmentAlreadyAccepted = errors.New("该作业已被其他导师接受")
	ErrNotAssignedTutor          = errors.New("只有被分配的导师可以提交答案")
	ErrAssignmentHasLinks        = errors.New("作业已派发给导师，无法删除")
	ErrAssignmentNotEditable     = errors.New("作业已进入处理流程，无法修改")
	ErrInvalidAmount             = errors.New("金额必须大于 0")
	ErrDeadlineInPast            = errors.New("截止时间必须晚于当前时间")
	ErrEmptyCourseName           = errors.New("课程名称不能为空")
	ErrEmptyAnswer               = errors.New("答案内容不能为空")
	ErrInvalidDecision           = errors.New("无效的处理决定")
)

// Mailer 邮件发送方，nil 表示不发送
type Mailer interface {
	SendTutorAssigned(ctx context.Context, msg mail.AssignmentMail) error
	SendAssignmentAnswered(ctx context.Context, msg mail.AssignmentMail) error
	SendBookingConfirmed(ctx context.Context, msg mail.BookingMail) error
}

// Caller 当前调用者身份，由认证中间件注入
type Caller struct {
	ID   string
	Role string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// AssignmentService 作业流程业务接口
//
// 状态迁移：
//
//	submitted ─send→ sent_to_tutor ─send→ sent_to_tutor
//	submitted / sent_to_tutor ─assign→ assigned_to_tutor
//	assigned_to_tutor ─answer→ completed（或 answer_submitted，需审核时）
//	answer_submitted / completed ─verify→ answer_verification
//
// 每次状态写入都是基于 version 的比较并交换，并发冲突返回 ErrOptimisticLock。
type AssignmentService interface {
	Create(ctx context.Context, posterID string, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error)
	Get(ctx context.Context, id string) (*dto.AssignmentResponse, error)
	Update(ctx context.Context, id string, caller Caller, req *dto.UpdateAssignmentRequest) (*dto.AssignmentResponse, error)
	Delete(ctx context.Context, id string, caller Caller) error

	SendToTutor(ctx context.Context, assignmentID, tutorID string) (*dto.LinkResponse, error)
	// Decide 导师接受或拒绝派发，不改变作业状态
	Decide(ctx context.Context, assignmentID, tutorID string, decision model.LinkDecision) (*dto.LinkResponse, error)
	AssignToTutor(ctx context.Context, assignmentID, tutorID string) (*dto.AssignmentResponse, error)
	SubmitAnswer(ctx context.Context, assignmentID string, answerer Caller, text string) (*dto.SubmitAnswerResponse, error)
	VerifyAnswer(ctx context.Context, assignmentID string) (*dto.AssignmentResponse, error)
}

type assignmentService struct {
	cfg      config.WorkflowConfig
	repo     *repository.Repository
	notifier Notifier
	mailer   Mailer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	cfg config.WorkflowConfig,
	repo *repository.Repository,
	notifier Notifier,
	mailer Mailer,
	m *metrics.Metrics,
	logger *zap.Logger,
) AssignmentService {
	if cfg.ExternalIDLength <= 0 {
		cfg.ExternalIDLength = 8
	}
	return &assignmentService{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		mailer:   mailer,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *assignmentService) Create(ctx context.Context, posterID string, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error) {
	courseName := strings.TrimSpace(req.CourseName)
	if courseName == "" {
		return nil, ErrEmptyCourseName
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !req.Deadline.After(s.now()) {
		return nil, ErrDeadlineInPast
	}

	externalID, err := generateExternalID(s.cfg.ExternalIDLength)
	if err != nil {
		s.logger.Error("生成作业编号失败", zap.Error(err))
		return nil, err
	}

	assignment := &model.Assignment{
		CourseName:  courseName,
		Description: req.Description,
		Amount:      req.Amount,
		Deadline:    req.Deadline,
		PosterID:    posterID,
		ExternalID:  externalID,
		Status:      model.AssignmentSubmitted,
	}
	if err := s.repo.Assignment.Create(ctx, assignment); err != nil {
		s.logger.Error("创建作业失败", zap.String("poster_id", posterID), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveTransition("", string(model.AssignmentSubmitted))

	s.notifier.Emit(ctx, Notice{
		Type:         model.NotifyAssignmentReceived,
		RecipientID:  posterID,
		CourseName:   assignment.CourseName,
		ExternalID:   assignment.ExternalID,
		AssignmentID: assignment.AssignmentID,
	})

	s.logger.Info("作业已创建",
		zap.String("assignment_id", assignment.AssignmentID),
		zap.String("external_id", externalID),
	)
	resp := toAssignmentResponse(assignment)
	return &resp, nil
}

// ────────────────────── Get ──────────────────────

func (s *assignmentService) Get(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	a, err := s.getAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *assignmentService) Update(ctx context.Context, id string, caller Caller, req *dto.UpdateAssignmentRequest) (*dto.AssignmentResponse, error) {
	a, err := s.getAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && a.PosterID != caller.ID {
		return nil, ErrPermissionDenied
	}
	if a.Status != model.AssignmentSubmitted {
		return nil, ErrAssignmentNotEditable
	}

	if req.CourseName != nil {
		name := strings.TrimSpace(*req.CourseName)
		if name == "" {
			return nil, ErrEmptyCourseName
		}
		a.CourseName = name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		a.Amount = *req.Amount
	}
	if req.Deadline != nil {
		if !req.Deadline.After(s.now()) {
			return nil, ErrDeadlineInPast
		}
		a.Deadline = *req.Deadline
	}

	if err := s.repo.Assignment.Update(ctx, a); err != nil {
		return nil, s.wrapWriteErr("更新作业失败", a.AssignmentID, err)
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *assignmentService) Delete(ctx context.Context, id string, caller Caller) error {
	a, err := s.getAssignment(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && a.PosterID != caller.ID {
		return ErrPermissionDenied
	}

	n, err := s.repo.Link.CountByAssignment(ctx, id)
	if err != nil {
		s.logger.Error("统计派发记录失败", zap.String("assignment_id", id), zap.Error(err))
		return err
	}
	if n > 0 {
		return ErrAssignmentHasLinks
	}

	if err := s.repo.Assignment.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		s.logger.Error("删除作业失败", zap.String("assignment_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── SendToTutor ──────────────────────

func (s *assignmentService) SendToTutor(ctx context.Context, assignmentID, tutorID string) (*dto.LinkResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	tutor, err := s.getTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	// 自环迁移同样做一次 CAS，保证派发时作业仍处于可派发状态
	if err := s.transition(ctx, a, model.AssignmentSentToTutor); err != nil {
		return nil, err
	}

	link := &model.TutorAssignmentLink{
		AssignmentID: a.AssignmentID,
		TutorID:      tutor.TutorID,
	}
	if err := s.repo.Link.Create(ctx, link); err != nil {
		s.logger.Error("创建派发记录失败",
			zap.String("assignment_id", assignmentID),
			zap.String("tutor_id", tutorID),
			zap.Error(err),
		)
		return nil, err
	}

	s.notifier.Emit(ctx, Notice{
		Type:         model.NotifyAssignmentOffered,
		RecipientID:  tutor.TutorID,
		CourseName:   a.CourseName,
		ExternalID:   a.ExternalID,
		Amount:       a.Amount,
		AssignmentID: a.AssignmentID,
	})

	link.Assignment = a
	link.Tutor = tutor
	resp := toLinkResponse(link)
	return &resp, nil
}

// ────────────────────── Decide ──────────────────────

func (s *assignmentService) Decide(ctx context.Context, assignmentID, tutorID string, decision model.LinkDecision) (*dto.LinkResponse, error) {
	if decision != model.DecisionAccept && decision != model.DecisionReject {
		return nil, ErrInvalidDecision
	}

	link, err := s.repo.Link.GetLatestByPair(ctx, assignmentID, tutorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		s.logger.Error("查询派发记录失败", zap.Error(err))
		return nil, err
	}

	if decision == model.DecisionAccept {
		accepted := true
		others, _, err := s.repo.Link.List(ctx, &repository.LinkFilters{
			AssignmentID: assignmentID,
			Accepted:     &accepted,
		}, 0, 0)
		if err != nil {
			s.logger.Error("查询已接受的派发记录失败", zap.Error(err))
			return nil, err
		}
		for _, o := range others {
			if o.TutorID != tutorID {
				return nil, ErrAssignmentAlreadyAccepted
			}
		}
	}

	// 同一导师可能被重复派发，只有最新一条记录承载决定
	if err := s.clearStaleAccepts(ctx, link); err != nil {
		return nil, err
	}

	link.Apply(decision)
	if err := s.repo.Link.Update(ctx, link); err != nil {
		// 部分唯一索引兜底：并发接受时只有一个能写入
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAssignmentAlreadyAccepted
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新派发记录失败", zap.String("link_id", link.LinkID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("导师已处理派发",
		zap.String("assignment_id", assignmentID),
		zap.String("tutor_id", tutorID),
		zap.String("decision", string(decision)),
	)
	resp := toLinkResponse(link)
	return &resp, nil
}

// ────────────────────── AssignToTutor ──────────────────────

func (s *assignmentService) AssignToTutor(ctx context.Context, assignmentID, tutorID string) (*dto.AssignmentResponse, error) {
	tutor, err := s.getTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	prevTutorID := a.AssignedTutorID
	prevTutor := a.AssignedTutor
	a.AssignedTutorID = &tutor.TutorID
	a.AssignedTutor = tutor
	if err := s.transition(ctx, a, model.AssignmentAssignedToTutor); err != nil {
		a.AssignedTutorID = prevTutorID
		a.AssignedTutor = prevTutor
		return nil, err
	}

	if err := s.repo.Tutor.IncrCounter(ctx, tutor.TutorID, model.TutorCounterAssignments, 1); err != nil {
		s.metrics.DependencyFailure("tutor_counter")
		s.logger.Error("更新导师作业数失败", zap.String("tutor_id", tutor.TutorID), zap.Error(err))
	}

	s.notifier.Emit(ctx, Notice{
		Type:         model.NotifyAssignmentAssigned,
		RecipientID:  tutor.TutorID,
		CourseName:   a.CourseName,
		ExternalID:   a.ExternalID,
		AssignmentID: a.AssignmentID,
	})

	if s.mailer != nil {
		err := s.mailer.SendTutorAssigned(ctx, mail.AssignmentMail{
			To:            tutor.Email,
			RecipientName: tutor.FullName,
			CourseName:    a.CourseName,
			ExternalID:    a.ExternalID,
			Amount:        a.Amount,
		})
		if err != nil {
			s.metrics.DependencyFailure("email")
			s.logger.Warn("发送导师分配邮件失败", zap.String("tutor_id", tutor.TutorID), zap.Error(err))
		}
	}

	resp := toAssignmentResponse(a)
	return &resp, nil
}

// ────────────────────── SubmitAnswer ──────────────────────

func (s *assignmentService) SubmitAnswer(ctx context.Context, assignmentID string, answerer Caller, text string) (*dto.SubmitAnswerResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyAnswer
	}
	switch answerer.Role {
	case model.RoleAdmin:
	case model.RoleTutor:
		if a.AssignedTutorID == nil || *a.AssignedTutorID != answerer.ID {
			return nil, ErrNotAssignedTutor
		}
	default:
		return nil, ErrPermissionDenied
	}

	target := model.AssignmentCompleted
	if s.cfg.RequireVerification {
		target = model.AssignmentAnswerSubmitted
	}
	prev := a.Status
	if err := s.transition(ctx, a, target); err != nil {
		return nil, err
	}

	now := s.now()
	answer := model.NewAssignmentAnswer(a.AssignmentID, answerer.ID, answerer.Role, text, now)
	if err := s.repo.Answer.Create(ctx, answer); err != nil {
		s.logger.Error("保存作业答案失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		// 答案未落库时回退状态
		a.Status = prev
		if rbErr := s.repo.Assignment.Update(ctx, a); rbErr != nil {
			s.logger.Error("回退作业状态失败", zap.String("assignment_id", assignmentID), zap.Error(rbErr))
		}
		return nil, err
	}

	if answerer.Role == model.RoleTutor {
		if err := s.repo.Tutor.IncrCounter(ctx, answerer.ID, model.TutorCounterAnswers, 1); err != nil {
			s.metrics.DependencyFailure("tutor_counter")
			s.logger.Error("更新导师答题数失败", zap.String("tutor_id", answerer.ID), zap.Error(err))
		}
	}

	s.notifier.Emit(ctx, Notice{
		Type:         model.NotifyAssignmentAnswered,
		RecipientID:  a.PosterID,
		CourseName:   a.CourseName,
		ExternalID:   a.ExternalID,
		AssignmentID: a.AssignmentID,
		AnswerID:     answer.AnswerID,
	})
	s.mailPoster(ctx, a)

	return &dto.SubmitAnswerResponse{
		Assignment: toAssignmentResponse(a),
		Answer:     toAnswerResponse(answer),
	}, nil
}

// ────────────────────── VerifyAnswer ──────────────────────

func (s *assignmentService) VerifyAnswer(ctx context.Context, assignmentID string) (*dto.AssignmentResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	a.AnswerVerified = true
	if err := s.transition(ctx, a, model.AssignmentAnswerVerification); err != nil {
		a.AnswerVerified = false
		return nil, err
	}

	answerID := ""
	answers, _, err := s.repo.Answer.List(ctx, &repository.AnswerFilters{
		Kind:         model.AnswerKindAssignment,
		AssignmentID: a.AssignmentID,
	}, 0, 1)
	if err != nil {
		s.logger.Warn("查询作业答案失败", zap.String("assignment_id", assignmentID), zap.Error(err))
	} else if len(answers) > 0 {
		answerID = answers[0].AnswerID
	}

	s.notifier.Emit(ctx, Notice{
		Type:         model.NotifyAnswerVerified,
		RecipientID:  a.PosterID,
		CourseName:   a.CourseName,
		ExternalID:   a.ExternalID,
		AssignmentID: a.AssignmentID,
		AnswerID:     answerID,
	})

	resp := toAssignmentResponse(a)
	return &resp, nil
}

// ── 辅助方法 ──

// transition 校验迁移合法性并以 CAS 写入，失败时恢复内存中的状态
func (s *assignmentService) transition(ctx context.Context, a *model.Assignment, to model.AssignmentStatus) error {
	from := a.Status
	if !from.CanTransitionTo(to) {
		return ErrInvalidStateTransition
	}
	a.Status = to
	if err := s.repo.Assignment.Update(ctx, a); err != nil {
		a.Status = from
		return s.wrapWriteErr("更新作业状态失败", a.AssignmentID, err)
	}
	s.metrics.ObserveTransition(string(from), string(to))
	s.logger.Info("作业状态迁移",
		zap.String("assignment_id", a.AssignmentID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// clearStaleAccepts 撤销同一 (作业, 导师) 旧派发记录上的接受标记
func (s *assignmentService) clearStaleAccepts(ctx context.Context, latest *model.TutorAssignmentLink) error {
	accepted := true
	stale, _, err := s.repo.Link.List(ctx, &repository.LinkFilters{
		AssignmentID: latest.AssignmentID,
		TutorID:      latest.TutorID,
		Accepted:     &accepted,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询历史派发记录失败", zap.Error(err))
		return err
	}
	for i := range stale {
		old := &stale[i]
		if old.LinkID == latest.LinkID {
			continue
		}
		old.Accepted = false
		if err := s.repo.Link.Update(ctx, old); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("撤销历史接受标记失败", zap.String("link_id", old.LinkID), zap.Error(err))
			}
			return err
		}
	}
	return nil
}

func (s *assignmentService) wrapWriteErr(msg, id string, err error) error {
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		s.logger.Warn("作业并发修改冲突", zap.String("assignment_id", id))
		return err
	}
	s.logger.Error(msg, zap.String("assignment_id", id), zap.Error(err))
	return err
}

func (s *assignmentService) getAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询作业失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (s *assignmentService) getTutor(ctx context.Context, id string) (*model.Tutor, error) {
	t, err := s.repo.Tutor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTutorNotFound
		}
		s.logger.Error("查询导师失败", zap.String("tutor_id", id), zap.Error(err))
		return nil, err
	}
	return t, nil
}

func (s *assignmentService) mailPoster(ctx context.Context, a *model.Assignment) {
	if s.mailer == nil {
		return
	}
	poster := a.Poster
	if poster == nil {
		u, err := s.repo.User.GetByID(ctx, a.PosterID)
		if err != nil {
			s.logger.Warn("查询发布者失败，跳过邮件", zap.String("poster_id", a.PosterID), zap.Error(err))
			return
		}
		poster = u
	}
	err := s.mailer.SendAssignmentAnswered(ctx, mail.AssignmentMail{
		To:            poster.Email,
		RecipientName: poster.FullName,
		CourseName:    a.CourseName,
		ExternalID:    a.ExternalID,
		Amount:        a.Amount,
	})
	if err != nil {
		s.metrics.DependencyFailure("email")
		s.logger.Warn("发送作业解答邮件失败", zap.String("poster_id", a.PosterID), zap.Error(err))
	}
}

// generateExternalID 生成 n 位纯数字作业编号，不保证唯一
func generateExternalID(n int) (string, error) {
	const digits = "0123456789"
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		b[i] = digits[idx.Int64()]
	}
	return string(b), nil
}
