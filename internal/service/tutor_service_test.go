package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
)

func nowForTest() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestTutorService_ListAndVerify(t *testing.T) {
	repos, repo := newTestRepos()
	svc := NewTutorService(repo, zap.NewNop())
	ctx := context.Background()
	_ = repos.tutors.Create(ctx, &model.Tutor{TutorID: "t1", FullName: "One"})
	_ = repos.tutors.Create(ctx, &model.Tutor{TutorID: "t2", FullName: "Two", AdminVerified: true})

	verified := true
	list, total, err := svc.List(ctx, &dto.TutorListRequest{Verified: &verified})
	if err != nil || total != 1 || list[0].ID != "t2" {
		t.Fatalf("期望仅 t2 已审核，实际 %v/%d/%v", list, total, err)
	}

	got, err := svc.SetVerified(ctx, "t1", true)
	if err != nil || !got.AdminVerified {
		t.Fatalf("审核应成功: %v", err)
	}
	if _, total, _ := svc.List(ctx, &dto.TutorListRequest{Verified: &verified}); total != 2 {
		t.Errorf("期望 2 名已审核导师，实际=%d", total)
	}

	if _, err := svc.Get(ctx, "ghost"); !errors.Is(err, ErrTutorNotFound) {
		t.Errorf("期望 ErrTutorNotFound，实际: %v", err)
	}
	if _, err := svc.SetVerified(ctx, "ghost", true); !errors.Is(err, ErrTutorNotFound) {
		t.Errorf("期望 ErrTutorNotFound，实际: %v", err)
	}
}

func TestTutorService_SearchByName(t *testing.T) {
	repos, repo := newTestRepos()
	svc := NewTutorService(repo, zap.NewNop())
	ctx := context.Background()
	_ = repos.tutors.Create(ctx, &model.Tutor{TutorID: "t1", FullName: "Ada Lovelace", AdminVerified: true})
	_ = repos.tutors.Create(ctx, &model.Tutor{TutorID: "t2", FullName: "Alan Turing", AdminVerified: true})
	_ = repos.tutors.Create(ctx, &model.Tutor{TutorID: "t3", FullName: "Grace Hopper"})

	list, total, err := svc.List(ctx, &dto.TutorListRequest{Q: "  LOVE "})
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if total != 1 || list[0].ID != "t1" {
		t.Errorf("期望只命中 t1，实际 total=%d", total)
	}

	verified := false
	list, total, _ = svc.List(ctx, &dto.TutorListRequest{Q: "r", Verified: &verified})
	if total != 1 || list[0].ID != "t3" {
		t.Errorf("姓名与审核状态应同时生效，实际 total=%d", total)
	}

	if _, total, _ := svc.List(ctx, &dto.TutorListRequest{Q: "nobody"}); total != 0 {
		t.Errorf("无匹配时期望 0，实际=%d", total)
	}
}
