package repository

import (
	"strings"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Tutor        TutorRepository
	Assignment   AssignmentRepository
	Link         TutorAssignmentLinkRepository
	Answer       AnswerRepository
	Question     QuestionRepository
	Notification NotificationRepository
	Vote         VoteRepository
	Schedule     ScheduleRepository
	Booking      BookingRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Tutor:        NewTutorRepo(db),
		Assignment:   NewAssignmentRepo(db),
		Link:         NewTutorAssignmentLinkRepo(db),
		Answer:       NewAnswerRepo(db),
		Question:     NewQuestionRepo(db),
		Notification: NewNotificationRepo(db),
		Vote:         NewVoteRepo(db),
		Schedule:     NewScheduleRepo(db),
		Booking:      NewBookingRepo(db),
	}
}

// orderClause 将 "field" / "-field" 形式的排序参数映射为白名单内的 ORDER BY 子句
func orderClause(sort string, allowed map[string]string, fallback string) string {
	if sort == "" {
		return fallback
	}
	dir := "ASC"
	key := sort
	if sort[0] == '-' {
		dir = "DESC"
		key = sort[1:]
	}
	col, ok := allowed[key]
	if !ok {
		return fallback
	}
	return col + " " + dir
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern 转义 LIKE 通配符后包成子串匹配，配合 ESCAPE '\' 使用
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
