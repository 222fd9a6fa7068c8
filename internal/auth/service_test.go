package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/crumbandco/bakeshop-backend/pkg/auth"
	"github.com/crumbandco/bakeshop-backend/pkg/auth/session"
	"github.com/crumbandco/bakeshop-backend/pkg/config"
	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
	created []*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
}

func (r *stubUserRepo) add(user *models.User) {
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := r.byID[id]; ok {
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (r *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New()
	r.add(user)
	r.created = append(r.created, user)
	return user, nil
}

type stubSessionManager struct {
	tokens    map[string]string
	rotateErr error
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{tokens: make(map[string]string)}
}

func (m *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	token := fmt.Sprintf("refresh-%s", accessID)
	m.tokens[accessID] = token
	return token, nil
}

func (m *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if m.rotateErr != nil {
		return "", "", m.rotateErr
	}
	stored, ok := m.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token := fmt.Sprintf("refresh-%s", newAccessID)
	m.tokens[newAccessID] = token
	return newAccessID, token, nil
}

func (m *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(m.tokens, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "bakeshop-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
	}
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
		Now:            func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test Baker",
		Role:         enums.UserRoleCustomer,
	}
	repo.add(user)
	return user
}

func TestRegisterCreatesAccountAndIssuesTokens(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "  Baker@Example.COM ",
		Password:    "correct horse",
		DisplayName: " Flo ",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "baker@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.DisplayName != "Flo" {
		t.Fatalf("expected trimmed display name, got %q", resp.User.DisplayName)
	}
	if resp.User.Role != "customer" {
		t.Fatalf("new accounts must be customers, got %q", resp.User.Role)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if len(repo.created) != 1 || repo.created[0].PasswordHash == "correct horse" {
		t.Fatal("password must be stored hashed")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("token user mismatch: %s vs %s", claims.UserID, resp.User.ID)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "baker@example.com", "correct horse")
	svc := newTestService(t, repo, newStubSessionManager())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "baker@example.com",
		Password:    "correct horse",
		DisplayName: "Flo",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newStubUserRepo(), newStubSessionManager())
	ctx := context.Background()

	cases := []RegisterRequest{
		{Email: "", Password: "correct horse", DisplayName: "Flo"},
		{Email: "baker@example.com", Password: "short", DisplayName: "Flo"},
		{Email: "baker@example.com", Password: "correct horse", DisplayName: "  "},
	}
	for i, req := range cases {
		_, err := svc.Register(ctx, req)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestLoginSuccessAndFailure(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "baker@example.com", "correct horse")
	svc := newTestService(t, repo, newStubSessionManager())
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: "Baker@Example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	// Wrong password and unknown user both produce the same opaque error.
	for _, req := range []LoginRequest{
		{Email: "baker@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct horse"},
	} {
		_, err := svc.Login(ctx, req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("credential failures must not leak detail, got %q", typed.Message())
		}
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "baker@example.com", "correct horse")
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "baker@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Fatal("expected a new access token")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	// The old refresh token is spent.
	_, err = svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "baker@example.com", "correct horse")
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "baker@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if err := svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.tokens[claims.ID]; ok {
		t.Fatal("session must be revoked")
	}

	if err := svc.Logout(ctx, " "); err == nil {
		t.Fatal("blank access id must error")
	}
}
