package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/salesops-erp/salesops-erp/internal/auth"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	if s.sessions == nil {
		s.sessions = map[string]int64{}
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager)
	return handler, sessionManager
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx), sess
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginSetsSessionIdentity(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:       7,
		Email:    "staff@salesops.local",
		Role:     "staff",
		IsActive: true,
	}}
	repo.user.PasswordHash = hashFor(t, "rahasia-123")
	handler, sm := newAuthHandler(t, repo)

	body := strings.NewReader(`{"email":"staff@salesops.local","password":"rahasia-123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, int64(7), sess.UserID())
	assert.Equal(t, "staff", sess.Role())
	assert.True(t, sess.Authenticated())

	var payload struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, int64(7), payload.UserID)
	assert.Equal(t, "staff", payload.Role)
	assert.Contains(t, repo.sessions, sess.ID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:       7,
		Email:    "staff@salesops.local",
		Role:     "staff",
		IsActive: true,
	}}
	repo.user.PasswordHash = hashFor(t, "rahasia-123")
	handler, sm := newAuthHandler(t, repo)

	body := strings.NewReader(`{"email":"staff@salesops.local","password":"salah-semua"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.False(t, sess.Authenticated())
}

func TestLoginInactiveUser(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:       7,
		Email:    "staff@salesops.local",
		Role:     "staff",
		IsActive: false,
	}}
	repo.user.PasswordHash = hashFor(t, "rahasia-123")
	handler, sm := newAuthHandler(t, repo)

	body := strings.NewReader(`{"email":"staff@salesops.local","password":"rahasia-123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	body := strings.NewReader(`{"email":"not-an-email","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{sessions: map[string]int64{}}
	handler, sm := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req, sess := withSession(t, sm, req)
	sess.SetIdentity(7, "staff")
	repo.sessions[sess.ID] = 7

	res := httptest.NewRecorder()
	handler.HandleLogoutForTest(res, req)

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.NotContains(t, repo.sessions, sess.ID)
}
