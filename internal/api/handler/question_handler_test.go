package handler

import (
	"context"
	"net/http"
	"testing"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/internal/service"
	pkgerrors "pisqre/backend/pkg/errors"
)

const testQuestionID = "7a6b5c4d-3e2f-4a1b-9c8d-7e6f5a4b3c2d"

// ── Mock QuestionService ──

type mockQuestionService struct {
	list       []dto.QuestionResponse
	err        error
	lastQuery  string
	lastCaller service.Caller
	lastVote   int
}

func (m *mockQuestionService) Ask(_ context.Context, _ service.Caller, _ *dto.CreateQuestionRequest) (*dto.QuestionResponse, error) {
	return &dto.QuestionResponse{}, m.err
}
func (m *mockQuestionService) Get(_ context.Context, _ string) (*dto.QuestionResponse, error) {
	return &dto.QuestionResponse{}, m.err
}
func (m *mockQuestionService) List(_ context.Context, _ string, _ *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	return m.list, int64(len(m.list)), m.err
}
func (m *mockQuestionService) Search(_ context.Context, keyword string, _ *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	m.lastQuery = keyword
	return m.list, int64(len(m.list)), m.err
}
func (m *mockQuestionService) Top(_ context.Context, _ *dto.PaginationRequest) ([]dto.QuestionResponse, int64, error) {
	return m.list, int64(len(m.list)), m.err
}
func (m *mockQuestionService) Update(_ context.Context, _ string, caller service.Caller, _ *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error) {
	m.lastCaller = caller
	return &dto.QuestionResponse{}, m.err
}
func (m *mockQuestionService) Delete(_ context.Context, _ string, caller service.Caller) error {
	m.lastCaller = caller
	return m.err
}
func (m *mockQuestionService) Vote(_ context.Context, id string, caller service.Caller, direction int) (*dto.VoteResponse, error) {
	m.lastCaller, m.lastVote = caller, direction
	return &dto.VoteResponse{ObjectID: id, ObjectType: "question", Votes: direction, MyVote: direction}, m.err
}
func (m *mockQuestionService) AnswerQuestion(_ context.Context, _ string, _ service.Caller, _ *dto.AnswerQuestionRequest) (*dto.AnswerResponse, error) {
	return &dto.AnswerResponse{}, m.err
}
func (m *mockQuestionService) ListAnswers(_ context.Context, _ string, _ *dto.PaginationRequest) ([]dto.AnswerResponse, int64, error) {
	return nil, 0, m.err
}

// ── Mock AnswerService ──

type mockAnswerService struct {
	err        error
	lastCaller service.Caller
}

func (m *mockAnswerService) Get(_ context.Context, _ string) (*dto.AnswerResponse, error) {
	return &dto.AnswerResponse{}, m.err
}
func (m *mockAnswerService) ListMine(_ context.Context, _ string, _ *dto.PaginationRequest) ([]dto.AnswerResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockAnswerService) Update(_ context.Context, _ string, _ service.Caller, _ *dto.UpdateAnswerRequest) (*dto.AnswerResponse, error) {
	return &dto.AnswerResponse{}, m.err
}
func (m *mockAnswerService) Delete(_ context.Context, _ string, _ service.Caller) error { return m.err }
func (m *mockAnswerService) Vote(_ context.Context, id string, caller service.Caller, direction int) (*dto.VoteResponse, error) {
	m.lastCaller = caller
	return &dto.VoteResponse{ObjectID: id, ObjectType: "answer", Votes: direction, MyVote: direction}, m.err
}

func TestQuestionHandler_Search(t *testing.T) {
	mock := &mockQuestionService{list: []dto.QuestionResponse{{ID: testQuestionID}}}
	h := NewQuestionHandler(mock, &mockAnswerService{})

	w := serve("GET", "/questions/search", "/questions/search?q=integral", nil, h.Search)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastQuery != "integral" {
		t.Errorf("expected keyword integral, got %q", mock.lastQuery)
	}

	w = serve("GET", "/questions/search", "/questions/search", nil, h.Search)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", w.Code)
	}

	mock.list = nil
	w = serve("GET", "/questions/search", "/questions/search?q=nothing", nil, h.Search)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for no match, got %d", w.Code)
	}
}

func TestQuestionHandler_VoteUsesCaller(t *testing.T) {
	qmock := &mockQuestionService{}
	amock := &mockAnswerService{}
	h := NewQuestionHandler(qmock, amock)

	w := serve("POST", "/questions/:id/vote", "/questions/"+testQuestionID+"/vote",
		jsonBody(dto.VoteRequest{Direction: -1}), withCaller(testUserID, model.RoleStudent, h.VoteQuestion))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if qmock.lastCaller.ID != testUserID || qmock.lastVote != -1 {
		t.Errorf("unexpected vote forwarded: %+v %d", qmock.lastCaller, qmock.lastVote)
	}

	w = serve("POST", "/answers/:id/vote", "/answers/"+testQuestionID+"/vote",
		jsonBody(dto.VoteRequest{Direction: 1}), withCaller(testTutorID, model.RoleTutor, h.Vote))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if amock.lastCaller.ID != testTutorID {
		t.Errorf("expected caller %s, got %s", testTutorID, amock.lastCaller.ID)
	}

	w = serve("POST", "/answers/:id/vote", "/answers/"+testQuestionID+"/vote",
		jsonBody(map[string]int{"direction": 5}), withCaller(testTutorID, model.RoleTutor, h.Vote))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for direction 5, got %d", w.Code)
	}
}

func TestQuestionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"not found", service.ErrQuestionNotFound, http.StatusNotFound, 14001},
		{"empty", service.ErrEmptyQuestion, http.StatusBadRequest, 14003},
		{"empty keyword", service.ErrEmptyKeyword, http.StatusBadRequest, 14006},
		{"vote race", pkgerrors.ErrOptimisticLock, http.StatusConflict, 14007},
		{"not asker", service.ErrPermissionDenied, http.StatusForbidden, 10003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewQuestionHandler(&mockQuestionService{err: tt.err}, &mockAnswerService{})
			w := serve("DELETE", "/questions/:id", "/questions/"+testQuestionID, nil,
				withCaller(testUserID, model.RoleStudent, h.DeleteQuestion))

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}
