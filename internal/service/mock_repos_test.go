package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"pisqre/backend/internal/model"
	"pisqre/backend/internal/repository"
	pkgerrors "pisqre/backend/pkg/errors"
)

// 所有 mock 均以值拷贝存储并加锁，可用于并发测试

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TutorRepository ──

type mockTutorRepo struct {
	mu      sync.Mutex
	seq     int
	tutors  map[string]model.Tutor
	incrErr error
}

func newMockTutorRepo() *mockTutorRepo {
	return &mockTutorRepo{tutors: make(map[string]model.Tutor)}
}

func (m *mockTutorRepo) Create(_ context.Context, tutor *model.Tutor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tutor.TutorID == "" {
		m.seq++
		tutor.TutorID = fmt.Sprintf("tutor-%d", m.seq)
	}
	tutor.CreatedAt = time.Now()
	m.tutors[tutor.TutorID] = *tutor
	return nil
}

func (m *mockTutorRepo) GetByID(_ context.Context, id string) (*model.Tutor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tutors[id]; ok {
		return &t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTutorRepo) GetByEmail(_ context.Context, email string) (*model.Tutor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tutors {
		if strings.EqualFold(t.Email, email) {
			t := t
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTutorRepo) List(_ context.Context, f *repository.TutorFilters, offset, limit int) ([]model.Tutor, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Tutor
	for _, t := range m.tutors {
		if f != nil {
			if f.Verified != nil && t.AdminVerified != *f.Verified {
				continue
			}
			if f.Name != "" && !strings.Contains(strings.ToLower(t.FullName), strings.ToLower(f.Name)) {
				continue
			}
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TutorID < all[j].TutorID })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockTutorRepo) SetVerified(_ context.Context, id string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tutors[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.AdminVerified = verified
	m.tutors[id] = t
	return nil
}

func (m *mockTutorRepo) IncrCounter(_ context.Context, id string, counter model.TutorCounter, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return m.incrErr
	}
	t, ok := m.tutors[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	switch counter {
	case model.TutorCounterAnswers:
		t.NumOfAnswers += delta
	case model.TutorCounterBookings:
		t.NumOfBookings += delta
	case model.TutorCounterAssignments:
		t.NumOfAssignments += delta
	default:
		return fmt.Errorf("非法计数字段: %s", counter)
	}
	m.tutors[id] = t
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	mu          sync.Mutex
	seq         int
	assignments map[string]model.Assignment
	users       *mockUserRepo
	tutors      *mockTutorRepo
	updateErr   error
}

func newMockAssignmentRepo(users *mockUserRepo, tutors *mockTutorRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{
		assignments: make(map[string]model.Assignment),
		users:       users,
		tutors:      tutors,
	}
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.AssignmentID == "" {
		m.seq++
		a.AssignmentID = fmt.Sprintf("asg-%d", m.seq)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	stored.Poster, stored.AssignedTutor = nil, nil
	m.assignments[a.AssignmentID] = stored
	return nil
}

// preload 模拟 Preload("Poster").Preload("AssignedTutor")
func (m *mockAssignmentRepo) preload(a model.Assignment) model.Assignment {
	if m.users != nil {
		if u, err := m.users.GetByID(context.Background(), a.PosterID); err == nil {
			a.Poster = u
		}
	}
	if m.tutors != nil && a.AssignedTutorID != nil {
		if t, err := m.tutors.GetByID(context.Background(), *a.AssignedTutorID); err == nil {
			a.AssignedTutor = t
		}
	}
	return a
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	m.mu.Lock()
	a, ok := m.assignments[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a = m.preload(a)
	return &a, nil
}

func (m *mockAssignmentRepo) List(_ context.Context, f *repository.AssignmentFilters, offset, limit int) ([]model.Assignment, int64, error) {
	m.mu.Lock()
	var all []model.Assignment
	for _, a := range m.assignments {
		if f != nil {
			if f.PosterID != "" && a.PosterID != f.PosterID {
				continue
			}
			if f.AssignedTutorID != "" && (a.AssignedTutorID == nil || *a.AssignedTutorID != f.AssignedTutorID) {
				continue
			}
			if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
				continue
			}
			if f.AnswerVerified != nil && a.AnswerVerified != *f.AnswerVerified {
				continue
			}
		}
		all = append(all, a)
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].AssignmentID < all[j].AssignmentID })
	page := paginate(all, offset, limit)
	for i := range page {
		page[i] = m.preload(page[i])
	}
	return page, int64(len(all)), nil
}

func (m *mockAssignmentRepo) SearchByExternalID(_ context.Context, code string) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.assignments {
		if strings.Contains(strings.ToLower(a.ExternalID), strings.ToLower(code)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.assignments[a.AssignmentID]
	if !ok || cur.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	a.UpdatedAt = time.Now()
	stored := *a
	stored.Poster, stored.AssignedTutor = nil, nil
	m.assignments[a.AssignmentID] = stored
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

func (m *mockAssignmentRepo) get(id string) model.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[id]
}

// ── Mock TutorAssignmentLinkRepository ──

type mockLinkRepo struct {
	mu    sync.Mutex
	seq   int
	links []model.TutorAssignmentLink
	// skipAcceptedIndex 为 true 时不模拟部分唯一索引
	skipAcceptedIndex bool
	// onRead 在 GetLatestByPair 读出记录后、返回前调用
	onRead func()
}

func newMockLinkRepo() *mockLinkRepo {
	return &mockLinkRepo{}
}

func (m *mockLinkRepo) Create(_ context.Context, l *model.TutorAssignmentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if l.LinkID == "" {
		l.LinkID = fmt.Sprintf("link-%d", m.seq)
	}
	if l.Version == 0 {
		l.Version = 1
	}
	// 单调递增的创建时间，保证 "最新" 可区分
	l.CreatedAt = time.Unix(int64(m.seq), 0)
	stored := *l
	stored.Assignment, stored.Tutor = nil, nil
	m.links = append(m.links, stored)
	return nil
}

func (m *mockLinkRepo) GetLatestByPair(_ context.Context, assignmentID, tutorID string) (*model.TutorAssignmentLink, error) {
	m.mu.Lock()
	var found *model.TutorAssignmentLink
	for i := len(m.links) - 1; i >= 0; i-- {
		l := m.links[i]
		if l.AssignmentID == assignmentID && l.TutorID == tutorID {
			found = &l
			break
		}
	}
	hook := m.onRead
	m.mu.Unlock()

	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if hook != nil {
		hook()
	}
	return found, nil
}

func (m *mockLinkRepo) List(_ context.Context, f *repository.LinkFilters, offset, limit int) ([]model.TutorAssignmentLink, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.TutorAssignmentLink
	for _, l := range m.links {
		if f != nil {
			if f.AssignmentID != "" && l.AssignmentID != f.AssignmentID {
				continue
			}
			if f.TutorID != "" && l.TutorID != f.TutorID {
				continue
			}
			if f.Accepted != nil && l.Accepted != *f.Accepted {
				continue
			}
			if f.Rejected != nil && l.Rejected != *f.Rejected {
				continue
			}
		}
		all = append(all, l)
	}
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockLinkRepo) CountByAssignment(_ context.Context, assignmentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.links {
		if l.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

func (m *mockLinkRepo) Update(_ context.Context, l *model.TutorAssignmentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i := range m.links {
		if m.links[i].LinkID == l.LinkID {
			idx = i
			break
		}
	}
	if idx < 0 || m.links[idx].Version != l.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if l.Accepted && !m.skipAcceptedIndex {
		for _, o := range m.links {
			if o.AssignmentID == l.AssignmentID && o.LinkID != l.LinkID && o.Accepted {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	l.Version++
	stored := *l
	stored.Assignment, stored.Tutor = nil, nil
	m.links[idx] = stored
	return nil
}

// ── Mock AnswerRepository ──

type mockAnswerRepo struct {
	mu        sync.Mutex
	seq       int
	answers   map[string]model.Answer
	createErr error
}

func newMockAnswerRepo() *mockAnswerRepo {
	return &mockAnswerRepo{answers: make(map[string]model.Answer)}
}

func (m *mockAnswerRepo) Create(_ context.Context, a *model.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if a.AnswerID == "" {
		a.AnswerID = fmt.Sprintf("ans-%d", m.seq)
	}
	m.answers[a.AnswerID] = *a
	return nil
}

func (m *mockAnswerRepo) GetByID(_ context.Context, id string) (*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.answers[id]; ok {
		return &a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAnswerRepo) List(_ context.Context, f *repository.AnswerFilters, offset, limit int) ([]model.Answer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Answer
	for _, a := range m.answers {
		if f != nil {
			if f.Kind != "" && a.Kind != f.Kind {
				continue
			}
			if f.QuestionID != "" && (a.QuestionID == nil || *a.QuestionID != f.QuestionID) {
				continue
			}
			if f.AssignmentID != "" && (a.AssignmentID == nil || *a.AssignmentID != f.AssignmentID) {
				continue
			}
			if f.AnswererID != "" && a.AnswererID != f.AnswererID {
				continue
			}
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AnswerID < all[j].AnswerID })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockAnswerRepo) UpdateContent(_ context.Context, a *model.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.answers[a.AnswerID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Content = a.Content
	cur.ModifiedAt = a.ModifiedAt
	m.answers[a.AnswerID] = cur
	return nil
}

func (m *mockAnswerRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.answers, id)
	return nil
}

func (m *mockAnswerRepo) IncrViews(_ context.Context, id string) error {
	return m.incr(id, func(a *model.Answer) { a.Views++ })
}

func (m *mockAnswerRepo) incr(id string, fn func(a *model.Answer)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(&a)
	m.answers[id] = a
	return nil
}

func (m *mockAnswerRepo) deleteByQuestion(questionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.answers {
		if a.QuestionID != nil && *a.QuestionID == questionID {
			delete(m.answers, id)
		}
	}
}

func (m *mockAnswerRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.answers)
}

// ── Mock QuestionRepository ──

type mockQuestionRepo struct {
	mu        sync.Mutex
	seq       int
	questions map[string]model.Question
	answers   *mockAnswerRepo
}

func newMockQuestionRepo(answers *mockAnswerRepo) *mockQuestionRepo {
	return &mockQuestionRepo{questions: make(map[string]model.Question), answers: answers}
}

func (m *mockQuestionRepo) Create(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if q.QuestionID == "" {
		q.QuestionID = fmt.Sprintf("q-%d", m.seq)
	}
	m.questions[q.QuestionID] = *q
	return nil
}

func (m *mockQuestionRepo) GetByID(_ context.Context, id string) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok {
		return &q, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) List(_ context.Context, f *repository.QuestionFilters, offset, limit int) ([]model.Question, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Question
	for _, q := range m.questions {
		if f != nil {
			if f.AskerID != "" && q.AskerID != f.AskerID {
				continue
			}
			kw := strings.ToLower(f.Keyword)
			if kw != "" && !strings.Contains(strings.ToLower(q.Title), kw) && !strings.Contains(strings.ToLower(q.Body), kw) {
				continue
			}
		}
		all = append(all, q)
	}
	byAnswers := f != nil && f.Sort == "-answers"
	sort.Slice(all, func(i, j int) bool {
		if byAnswers && all[i].Answers != all[j].Answers {
			return all[i].Answers > all[j].Answers
		}
		return all[i].QuestionID < all[j].QuestionID
	})
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockQuestionRepo) UpdateContent(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.questions[q.QuestionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Title, cur.Body = q.Title, q.Body
	m.questions[q.QuestionID] = cur
	return nil
}

func (m *mockQuestionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.questions, id)
	m.answers.deleteByQuestion(id)
	return nil
}

func (m *mockQuestionRepo) addVotes(id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Votes += delta
	m.questions[id] = q
	return nil
}

func (m *mockQuestionRepo) IncrAnswers(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Answers += delta
	m.questions[id] = q
	return nil
}

// ── Mock VoteRepository ──

type mockVoteRepo struct {
	mu        sync.Mutex
	votes     map[string]model.Vote
	answers   *mockAnswerRepo
	questions *mockQuestionRepo
}

func newMockVoteRepo(answers *mockAnswerRepo, questions *mockQuestionRepo) *mockVoteRepo {
	return &mockVoteRepo{votes: make(map[string]model.Vote), answers: answers, questions: questions}
}

func voteKey(objectID, userID string) string { return objectID + "|" + userID }

func (m *mockVoteRepo) Get(_ context.Context, objectID, userID string) (*model.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.votes[voteKey(objectID, userID)]; ok {
		return &v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// Apply 持锁完成记录与计票，模拟事务
func (m *mockVoteRepo) Apply(_ context.Context, c repository.VoteChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := voteKey(c.ObjectID, c.UserID)
	cur, exists := m.votes[key]
	switch {
	case c.Prev == 0 && exists:
		return pkgerrors.ErrOptimisticLock
	case c.Prev != 0 && (!exists || cur.VoteType != c.Prev):
		return pkgerrors.ErrOptimisticLock
	}

	if c.Delta() != 0 {
		var err error
		switch c.ObjectType {
		case model.VoteObjectAnswer:
			err = m.answers.incr(c.ObjectID, func(a *model.Answer) { a.Votes += c.Delta() })
		case model.VoteObjectQuestion:
			err = m.questions.addVotes(c.ObjectID, c.Delta())
		default:
			err = fmt.Errorf("非法投票对象: %s", c.ObjectType)
		}
		if err != nil {
			return err
		}
	}

	if c.Next == 0 {
		delete(m.votes, key)
		return nil
	}
	m.votes[key] = model.Vote{ObjectID: c.ObjectID, ObjectType: c.ObjectType, UserID: c.UserID, VoteType: c.Next}
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	mu        sync.Mutex
	seq       int
	schedules map[string]model.Schedule
	// onRead 在 GetByID 读出记录后、返回前调用
	onRead func()
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]model.Schedule)}
}

func (m *mockScheduleRepo) Create(_ context.Context, sc *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(sc)
	return nil
}

func (m *mockScheduleRepo) BatchCreate(_ context.Context, list []model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range list {
		m.insert(&list[i])
	}
	return nil
}

func (m *mockScheduleRepo) insert(sc *model.Schedule) {
	m.seq++
	if sc.ScheduleID == "" {
		sc.ScheduleID = fmt.Sprintf("sch-%02d", m.seq)
	}
	if sc.Version == 0 {
		sc.Version = 1
	}
	stored := *sc
	stored.Tutor = nil
	m.schedules[sc.ScheduleID] = stored
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.Schedule, error) {
	m.mu.Lock()
	sc, ok := m.schedules[id]
	hook := m.onRead
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if hook != nil {
		hook()
	}
	return &sc, nil
}

func (m *mockScheduleRepo) List(_ context.Context, f *repository.ScheduleFilters, offset, limit int) ([]model.Schedule, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Schedule
	for _, sc := range m.schedules {
		if f != nil {
			if f.TutorID != "" && sc.TutorID != f.TutorID {
				continue
			}
			if f.From != nil && sc.StartAt.Before(*f.From) {
				continue
			}
			if f.To != nil && !sc.StartAt.Before(*f.To) {
				continue
			}
			if f.Booked != nil && sc.Booked != *f.Booked {
				continue
			}
		}
		all = append(all, sc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartAt.Before(all[j].StartAt) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockScheduleRepo) HasOverlap(_ context.Context, tutorID string, start, end time.Time, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sc := range m.schedules {
		if sc.TutorID == tutorID && sc.ScheduleID != excludeID && sc.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockScheduleRepo) WeeklySummary(_ context.Context, tutorID string, from, to time.Time) ([]model.WeekCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byWeek := make(map[[2]int]*model.WeekCount)
	for _, sc := range m.schedules {
		if tutorID != "" && sc.TutorID != tutorID {
			continue
		}
		if sc.StartAt.Before(from) || !sc.StartAt.Before(to) {
			continue
		}
		y, w := sc.StartAt.ISOWeek()
		wc, ok := byWeek[[2]int{y, w}]
		if !ok {
			wc = &model.WeekCount{Year: y, Week: w}
			byWeek[[2]int{y, w}] = wc
		}
		wc.Total++
		if sc.Booked {
			wc.Booked++
		}
	}
	out := make([]model.WeekCount, 0, len(byWeek))
	for _, wc := range byWeek {
		out = append(out, *wc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, sc *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.schedules[sc.ScheduleID]
	if !ok || cur.Version != sc.Version {
		return pkgerrors.ErrOptimisticLock
	}
	sc.Version++
	stored := *sc
	stored.Tutor = nil
	m.schedules[sc.ScheduleID] = stored
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.schedules[id]
	if !ok || sc.Booked {
		return gorm.ErrRecordNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *mockScheduleRepo) get(id string) model.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[id]
}

// ── Mock BookingRepository ──

type mockBookingRepo struct {
	mu        sync.Mutex
	seq       int
	bookings  map[string]model.Booking
	createErr error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]model.Booking)}
}

func (m *mockBookingRepo) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, o := range m.bookings {
		if o.ScheduleID == b.ScheduleID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.seq++
	if b.BookingID == "" {
		b.BookingID = fmt.Sprintf("bk-%02d", m.seq)
	}
	b.CreatedAt = time.Unix(int64(m.seq), 0)
	stored := *b
	stored.Schedule, stored.Tutor, stored.Student = nil, nil, nil
	m.bookings[b.BookingID] = stored
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		return &b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) List(_ context.Context, f *repository.BookingFilters, offset, limit int) ([]model.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Booking
	for _, b := range m.bookings {
		if f != nil {
			if f.TutorID != "" && b.TutorID != f.TutorID {
				continue
			}
			if f.StudentID != "" && b.StudentID != f.StudentID {
				continue
			}
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BookingID < all[j].BookingID })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockBookingRepo) UpdateDetails(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bookings[b.BookingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.CourseName, cur.Description, cur.SessionType = b.CourseName, b.Description, b.SessionType
	m.bookings[b.BookingID] = cur
	return nil
}

func (m *mockBookingRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *mockBookingRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu        sync.Mutex
	seq       int
	items     []model.Notification
	createErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if n.NotificationID == "" {
		n.NotificationID = fmt.Sprintf("ntf-%d", m.seq)
	}
	n.CreatedAt = time.Now()
	m.items = append(m.items, *n)
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.NotificationID == id {
			return &n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByRecipient(_ context.Context, recipientID string, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			all = append(all, n)
		}
	}
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			total++
		}
	}
	return total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].NotificationID == id {
			m.items[i].IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].NotificationID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// byType 返回指定类型的通知
func (m *mockNotificationRepo) byType(t model.NotificationType) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ── 通用辅助 ──

func paginate[T any](all []T, offset, limit int) []T {
	if limit <= 0 {
		if all == nil {
			return []T{}
		}
		return all
	}
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func containsStatus(list []model.AssignmentStatus, s model.AssignmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// testRepos 一组相互关联的 mock 仓储
type testRepos struct {
	users         *mockUserRepo
	tutors        *mockTutorRepo
	assignments   *mockAssignmentRepo
	links         *mockLinkRepo
	answers       *mockAnswerRepo
	questions     *mockQuestionRepo
	notifications *mockNotificationRepo
	votes         *mockVoteRepo
	schedules     *mockScheduleRepo
	bookings      *mockBookingRepo
}

func newTestRepos() (*testRepos, *repository.Repository) {
	users := newMockUserRepo()
	tutors := newMockTutorRepo()
	answers := newMockAnswerRepo()
	questions := newMockQuestionRepo(answers)
	r := &testRepos{
		users:         users,
		tutors:        tutors,
		assignments:   newMockAssignmentRepo(users, tutors),
		links:         newMockLinkRepo(),
		answers:       answers,
		questions:     questions,
		notifications: newMockNotificationRepo(),
		votes:         newMockVoteRepo(answers, questions),
		schedules:     newMockScheduleRepo(),
		bookings:      newMockBookingRepo(),
	}
	return r, &repository.Repository{
		User:         r.users,
		Tutor:        r.tutors,
		Assignment:   r.assignments,
		Link:         r.links,
		Answer:       r.answers,
		Question:     r.questions,
		Notification: r.notifications,
		Vote:         r.votes,
		Schedule:     r.schedules,
		Booking:      r.bookings,
	}
}
