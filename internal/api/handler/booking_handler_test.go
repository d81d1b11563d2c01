package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/service"
	pkgerrors "pisqre/backend/pkg/errors"
)

const (
	testScheduleID = "3c2b1a09-8f7e-4d6c-9b5a-493827161504"
	testBookingID  = "9e8d7c6b-5a49-4382-a716-051423324150"
)

// ── Mock ScheduleService ──

type mockScheduleService struct {
	list       []dto.ScheduleResponse
	err        error
	lastCaller service.Caller
	lastRange  *dto.ScheduleRangeRequest
}

func (m *mockScheduleService) Create(_ context.Context, tutor service.Caller, _ *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	m.lastCaller = tutor
	return &dto.ScheduleResponse{ID: testScheduleID, TutorID: tutor.ID}, m.err
}
func (m *mockScheduleService) CreateBatch(_ context.Context, _ service.Caller, _ *dto.BatchCreateScheduleRequest) ([]dto.ScheduleResponse, error) {
	return m.list, m.err
}
func (m *mockScheduleService) Get(_ context.Context, _ string) (*dto.ScheduleResponse, error) {
	return &dto.ScheduleResponse{}, m.err
}
func (m *mockScheduleService) ListMine(_ context.Context, _ string, _ *dto.PaginationRequest) ([]dto.ScheduleResponse, int64, error) {
	return m.list, int64(len(m.list)), m.err
}
func (m *mockScheduleService) ListBetween(_ context.Context, _ string, req *dto.ScheduleRangeRequest) ([]dto.ScheduleResponse, error) {
	m.lastRange = req
	return m.list, m.err
}
func (m *mockScheduleService) WeeklyPlan(_ context.Context, _ service.Caller, _ *dto.WeeklyPlanRequest) ([]dto.WeekCountResponse, error) {
	return nil, m.err
}
func (m *mockScheduleService) Update(_ context.Context, _ string, _ service.Caller, _ *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	return &dto.ScheduleResponse{}, m.err
}
func (m *mockScheduleService) Delete(_ context.Context, _ string, _ service.Caller) error {
	return m.err
}

// ── Mock BookingService ──

type mockBookingService struct {
	err        error
	lastCaller service.Caller
	lastReq    *dto.CreateBookingRequest
}

func (m *mockBookingService) Book(_ context.Context, student service.Caller, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	m.lastCaller, m.lastReq = student, req
	return &dto.BookingResponse{ID: testBookingID, ScheduleID: req.ScheduleID}, m.err
}
func (m *mockBookingService) Get(_ context.Context, _ string, _ service.Caller) (*dto.BookingResponse, error) {
	return &dto.BookingResponse{}, m.err
}
func (m *mockBookingService) ListAll(_ context.Context, _ *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockBookingService) ListForTutor(_ context.Context, _ string, _ service.Caller, _ *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockBookingService) ListMine(_ context.Context, _ string, _ *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockBookingService) Update(_ context.Context, _ string, _ service.Caller, _ *dto.UpdateBookingRequest) (*dto.BookingResponse, error) {
	return &dto.BookingResponse{}, m.err
}
func (m *mockBookingService) Cancel(_ context.Context, _ string, caller service.Caller) error {
	m.lastCaller = caller
	return m.err
}

func newBookingReq() dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		ScheduleID:  testScheduleID,
		CourseName:  "MATH101",
		Description: "Limits",
		Duration:    "1hour",
		SessionType: "live_session",
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_Create(t *testing.T) {
	mock := &mockScheduleService{}
	h := NewScheduleHandler(mock)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	w := serve("POST", "/schedules", "/schedules",
		jsonBody(dto.CreateScheduleRequest{StartAt: start, EndAt: start.Add(time.Hour)}),
		withCaller(testTutorID, model.RoleTutor, h.Create))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.lastCaller.ID != testTutorID {
		t.Errorf("expected caller %s, got %s", testTutorID, mock.lastCaller.ID)
	}

	w = serve("POST", "/schedules", "/schedules", jsonBody(map[string]string{"start_at": "tomorrow"}),
		withCaller(testTutorID, model.RoleTutor, h.Create))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad time, got %d", w.Code)
	}
}

func TestScheduleHandler_ListForTutor(t *testing.T) {
	mock := &mockScheduleService{list: []dto.ScheduleResponse{{ID: testScheduleID}}}
	h := NewScheduleHandler(mock)

	w := serve("GET", "/schedules/tutors/:id",
		"/schedules/tutors/"+testTutorID+"?from=2026-03-02T00:00:00Z&to=2026-03-09T00:00:00Z", nil, h.ListForTutor)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastRange == nil || mock.lastRange.From.Day() != 2 || mock.lastRange.To.Day() != 9 {
		t.Errorf("range not forwarded: %+v", mock.lastRange)
	}

	w = serve("GET", "/schedules/tutors/:id", "/schedules/tutors/"+testTutorID, nil, h.ListForTutor)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without range, got %d", w.Code)
	}

	mock.list = nil
	w = serve("GET", "/schedules/tutors/:id",
		"/schedules/tutors/"+testTutorID+"?from=2026-03-02T00:00:00Z&to=2026-03-09T00:00:00Z", nil, h.ListForTutor)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for empty range, got %d", w.Code)
	}
}

func TestScheduleHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"not found", service.ErrScheduleNotFound, http.StatusNotFound, 19001},
		{"booked", service.ErrScheduleBooked, http.StatusConflict, 19006},
		{"overlap", service.ErrScheduleOverlap, http.StatusConflict, 19005},
		{"lost race", pkgerrors.ErrOptimisticLock, http.StatusConflict, 19007},
		{"not owner", service.ErrPermissionDenied, http.StatusForbidden, 10003},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewScheduleHandler(&mockScheduleService{err: tt.err})
			w := serve("DELETE", "/schedules/:id", "/schedules/"+testScheduleID, nil,
				withCaller(testTutorID, model.RoleTutor, h.Delete))

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// BookingHandler Tests
// ═══════════════════════════════════════════════════════════

func TestBookingHandler_Book(t *testing.T) {
	mock := &mockBookingService{}
	h := NewBookingHandler(mock)

	w := serve("POST", "/bookings", "/bookings", jsonBody(newBookingReq()),
		withCaller(testUserID, model.RoleStudent, h.Book))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.lastCaller.ID != testUserID || mock.lastReq.ScheduleID != testScheduleID {
		t.Errorf("unexpected booking forwarded: %+v %+v", mock.lastCaller, mock.lastReq)
	}

	bad := newBookingReq()
	bad.Duration = "3hours"
	w = serve("POST", "/bookings", "/bookings", jsonBody(bad), withCaller(testUserID, model.RoleStudent, h.Book))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for 3hours, got %d", w.Code)
	}
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"schedule missing", service.ErrScheduleNotFound, http.StatusNotFound, 19001},
		{"already booked", service.ErrScheduleAlreadyBooked, http.StatusConflict, 20002},
		{"started", service.ErrScheduleStarted, http.StatusConflict, 20003},
		{"too long", service.ErrDurationExceedsSchedule, http.StatusBadRequest, 20004},
		{"tutor booking", service.ErrPermissionDenied, http.StatusForbidden, 10003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(&mockBookingService{err: tt.err})
			w := serve("POST", "/bookings", "/bookings", jsonBody(newBookingReq()),
				withCaller(testUserID, model.RoleStudent, h.Book))

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestBookingHandler_Cancel(t *testing.T) {
	mock := &mockBookingService{}
	h := NewBookingHandler(mock)

	w := serve("DELETE", "/bookings/:id", "/bookings/"+testBookingID, nil,
		withCaller(testTutorID, model.RoleTutor, h.Cancel))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastCaller.ID != testTutorID {
		t.Errorf("expected caller %s, got %s", testTutorID, mock.lastCaller.ID)
	}

	mock.err = service.ErrBookingNotFound
	w = serve("DELETE", "/bookings/:id", "/bookings/"+testBookingID, nil,
		withCaller(testTutorID, model.RoleTutor, h.Cancel))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
