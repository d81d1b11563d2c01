package service

import (
	"errors"

	"gorm.io/gorm"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
)

// ── 模型 → 响应 ──

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		ID:             a.AssignmentID,
		CourseName:     a.CourseName,
		Description:    a.Description,
		Amount:         a.Amount,
		Deadline:       a.Deadline.Format(dto.TimeLayout),
		PosterID:       a.PosterID,
		ExternalID:     a.ExternalID,
		Status:         string(a.Status),
		StatusLabel:    a.StatusLabel(),
		AnswerVerified: a.AnswerVerified,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      a.UpdatedAt.Format(dto.TimeLayout),
	}
	if a.Poster != nil {
		resp.PosterName = a.Poster.FullName
	}
	if a.AssignedTutor != nil {
		resp.AssignedTutor = &dto.TutorBrief{ID: a.AssignedTutor.TutorID, FullName: a.AssignedTutor.FullName}
	} else if a.AssignedTutorID != nil {
		resp.AssignedTutor = &dto.TutorBrief{ID: *a.AssignedTutorID}
	}
	return resp
}

func toAssignmentResponses(list []model.Assignment) []dto.AssignmentResponse {
	out := make([]dto.AssignmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAssignmentResponse(&list[i]))
	}
	return out
}

func toLinkResponse(l *model.TutorAssignmentLink) dto.LinkResponse {
	resp := dto.LinkResponse{
		ID:           l.LinkID,
		AssignmentID: l.AssignmentID,
		TutorID:      l.TutorID,
		Accepted:     l.Accepted,
		Rejected:     l.Rejected,
		CreatedAt:    l.CreatedAt.Format(dto.TimeLayout),
	}
	if l.Assignment != nil {
		a := toAssignmentResponse(l.Assignment)
		resp.Assignment = &a
	}
	if l.Tutor != nil {
		resp.Tutor = &dto.TutorBrief{ID: l.Tutor.TutorID, FullName: l.Tutor.FullName}
	}
	return resp
}

func toLinkResponses(list []model.TutorAssignmentLink) []dto.LinkResponse {
	out := make([]dto.LinkResponse, 0, len(list))
	for i := range list {
		out = append(out, toLinkResponse(&list[i]))
	}
	return out
}

func toAnswerResponse(a *model.Answer) dto.AnswerResponse {
	resp := dto.AnswerResponse{
		ID:           a.AnswerID,
		Kind:         string(a.Kind),
		AnswererID:   a.AnswererID,
		AnswererRole: a.AnswererRole,
		Content:      a.Content,
		Views:        a.Views,
		Votes:        a.Votes,
		AnsweredAt:   a.AnsweredAt.Format(dto.TimeLayout),
		ModifiedAt:   a.ModifiedAt.Format(dto.TimeLayout),
	}
	if a.QuestionID != nil {
		resp.QuestionID = *a.QuestionID
	}
	if a.AssignmentID != nil {
		resp.AssignmentID = *a.AssignmentID
	}
	return resp
}

func toAnswerResponses(list []model.Answer) []dto.AnswerResponse {
	out := make([]dto.AnswerResponse, 0, len(list))
	for i := range list {
		out = append(out, toAnswerResponse(&list[i]))
	}
	return out
}

func toQuestionResponse(q *model.Question) dto.QuestionResponse {
	return dto.QuestionResponse{
		ID:        q.QuestionID,
		AskerID:   q.AskerID,
		AskerRole: q.AskerRole,
		Title:     q.Title,
		Body:      q.Body,
		Answers:   q.Answers,
		Votes:     q.Votes,
		CreatedAt: q.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt: q.UpdatedAt.Format(dto.TimeLayout),
	}
}

func toTutorResponse(t *model.Tutor) dto.TutorResponse {
	return dto.TutorResponse{
		ID:               t.TutorID,
		FullName:         t.FullName,
		Email:            t.Email,
		Price:            t.Price,
		AdminVerified:    t.AdminVerified,
		NumOfAnswers:     t.NumOfAnswers,
		NumOfBookings:    t.NumOfBookings,
		NumOfAssignments: t.NumOfAssignments,
		CreatedAt:        t.CreatedAt.Format(dto.TimeLayout),
	}
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.NotificationID,
		Type:      string(n.Type),
		Message:   n.Message,
		Read:      n.IsRead,
		CreatedAt: n.CreatedAt.Format(dto.TimeLayout),
	}
	if n.AssignmentID != nil {
		resp.AssignmentID = *n.AssignmentID
	}
	if n.QuestionID != nil {
		resp.QuestionID = *n.QuestionID
	}
	if n.AnswerID != nil {
		resp.AnswerID = *n.AnswerID
	}
	return resp
}

// notFoundOr 将 gorm 的记录不存在转换为业务错误
func notFoundOr(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func toScheduleResponse(s *model.Schedule) dto.ScheduleResponse {
	resp := dto.ScheduleResponse{
		ID:      s.ScheduleID,
		TutorID: s.TutorID,
		StartAt: s.StartAt.Format(dto.TimeLayout),
		EndAt:   s.EndAt.Format(dto.TimeLayout),
		Booked:  s.Booked,
		Version: s.Version,
	}
	if s.Tutor != nil {
		resp.TutorName = s.Tutor.FullName
	}
	return resp
}

func toScheduleResponses(list []model.Schedule) []dto.ScheduleResponse {
	out := make([]dto.ScheduleResponse, 0, len(list))
	for i := range list {
		out = append(out, toScheduleResponse(&list[i]))
	}
	return out
}

func toBookingResponse(b *model.Booking) dto.BookingResponse {
	resp := dto.BookingResponse{
		ID:          b.BookingID,
		ScheduleID:  b.ScheduleID,
		TutorID:     b.TutorID,
		StudentID:   b.StudentID,
		CourseName:  b.CourseName,
		Description: b.Description,
		Duration:    string(b.Duration),
		SessionType: string(b.SessionType),
		Price:       b.Price,
		CreatedAt:   b.CreatedAt.Format(dto.TimeLayout),
	}
	if b.Tutor != nil {
		resp.TutorName = b.Tutor.FullName
	}
	if b.Student != nil {
		resp.StudentName = b.Student.FullName
	}
	if b.Schedule != nil {
		sr := toScheduleResponse(b.Schedule)
		resp.Schedule = &sr
	}
	return resp
}

func toBookingResponses(list []model.Booking) []dto.BookingResponse {
	out := make([]dto.BookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i]))
	}
	return out
}
