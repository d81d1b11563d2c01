package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"pisqre/backend/config"
	"pisqre/backend/internal/dto"
	"pisqre/backend/internal/model"
	"pisqre/backend/pkg/jwt"
)

// ── 测试辅助 ──

type fakeTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{revoked: make(map[string]time.Duration)}
}

func (f *fakeTokenStore) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = ttl
	return nil
}

func (f *fakeTokenStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[jti]
	return ok, nil
}

func setupTestAuthService() (AuthService, *jwt.Manager, *fakeTokenStore) {
	_, repo := newTestRepos()
	mgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-at-least-16",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	tokens := newFakeTokenStore()
	return NewAuthService(repo, mgr, tokens, zap.NewNop()), mgr, tokens
}

// ── 注册与登录 ──

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, mgr, _ := setupTestAuthService()
	ctx := context.Background()

	p, err := svc.Register(ctx, &dto.RegisterRequest{FullName: "Pat", Email: "Pat@Example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if p.Role != model.RoleStudent || p.Email != "pat@example.com" {
		t.Errorf("期望学生角色且邮箱小写，实际 %s/%s", p.Role, p.Email)
	}

	if _, err := svc.Register(ctx, &dto.RegisterRequest{FullName: "Dup", Email: "pat@example.com", Password: "password123"}); !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}

	tok, err := svc.Login(ctx, &dto.LoginRequest{Email: "pat@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	claims, err := mgr.ParseToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != p.ID || claims.Role != model.RoleStudent {
		t.Errorf("Token 声明错误: %+v", claims)
	}
	if tok.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", tok.ExpiresIn)
	}

	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "pat@example.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("错误密码期望 ErrInvalidCredentials，实际: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("不存在用户期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_TutorLogin(t *testing.T) {
	svc, mgr, _ := setupTestAuthService()
	ctx := context.Background()

	tutor, err := svc.RegisterTutor(ctx, &dto.RegisterTutorRequest{FullName: "Ada", Email: "ada@example.com", Password: "password123", Price: 15})
	if err != nil {
		t.Fatalf("RegisterTutor 应成功: %v", err)
	}
	if tutor.AdminVerified {
		t.Error("新注册导师不应已审核")
	}

	// 未勾选导师登录时查不到
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
	tok, err := svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "password123", AsTutor: true})
	if err != nil {
		t.Fatalf("导师登录应成功: %v", err)
	}
	claims, _ := mgr.ParseToken(tok.AccessToken)
	if claims.Role != model.RoleTutor || claims.UserID != tutor.ID {
		t.Errorf("导师 Token 声明错误: %+v", claims)
	}

	me, err := svc.Me(ctx, Caller{ID: tutor.ID, Role: model.RoleTutor})
	if err != nil || me.FullName != "Ada" {
		t.Errorf("Me 应返回导师信息: %v", err)
	}
}

// ── 刷新与注销 ──

func TestAuthService_RefreshIsSingleUse(t *testing.T) {
	svc, _, _ := setupTestAuthService()
	ctx := context.Background()
	_, _ = svc.Register(ctx, &dto.RegisterRequest{FullName: "Pat", Email: "pat@example.com", Password: "password123"})
	tok, _ := svc.Login(ctx, &dto.LoginRequest{Email: "pat@example.com", Password: "password123"})

	next, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: tok.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if next.AccessToken == "" {
		t.Error("应返回新的 AccessToken")
	}
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: tok.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("重复使用 refresh token 期望 ErrInvalidToken，实际: %v", err)
	}
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: tok.AccessToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("用 access token 刷新期望 ErrInvalidToken，实际: %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, mgr, tokens := setupTestAuthService()
	ctx := context.Background()
	_, _ = svc.Register(ctx, &dto.RegisterRequest{FullName: "Pat", Email: "pat@example.com", Password: "password123"})
	tok, _ := svc.Login(ctx, &dto.LoginRequest{Email: "pat@example.com", Password: "password123"})

	claims, _ := mgr.ParseToken(tok.AccessToken)
	if err := svc.Logout(ctx, claims, &dto.LogoutRequest{RefreshToken: tok.RefreshToken}); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}

	if revoked, _ := tokens.IsBlacklisted(ctx, claims.ID); !revoked {
		t.Error("AccessToken 应被拉黑")
	}
	rc, _ := mgr.ParseToken(tok.RefreshToken)
	if revoked, _ := tokens.IsBlacklisted(ctx, rc.ID); !revoked {
		t.Error("RefreshToken 应被拉黑")
	}
	if ttl := tokens.revoked[claims.ID]; ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("拉黑时长应为剩余有效期，实际=%v", ttl)
	}
}
