package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"secureapp/internal/models"
	"secureapp/internal/repository"
	"secureapp/internal/services"
	"strings"
	"testing"
	"time"
)

// Мок-хранилище для хендлеров: один зарегистрированный email.
type stubResetRepo struct {
	registered string
	calls      int
}

func (s *stubResetRepo) SetResetToken(_ context.Context, email, _ string, _ time.Time) (int64, error) {
	s.calls++
	if email == s.registered {
		return 1, nil
	}
	return 0, nil
}

func (s *stubResetRepo) GetUserByResetToken(_ context.Context, _, _ string) (*models.User, error) {
	s.calls++
	return nil, repository.ErrNotFound
}

func (s *stubResetRepo) ConsumePasswordReset(_ context.Context, _ int, _, _ string) (int64, error) {
	s.calls++
	return 0, nil
}

type noopNotifier struct{}

func (noopNotifier) SendPasswordReset(_ context.Context, _, _ string) error { return nil }

func newPasswordHandler(repo *stubResetRepo) *PasswordHandler {
	svc := services.NewPasswordService(repo, noopNotifier{}, time.Hour, 6)
	return NewPasswordHandler(svc)
}

func doJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestRequestReset_IdenticalBodies(t *testing.T) {
	repo := &stubResetRepo{registered: "real@x.com"}
	h := newPasswordHandler(repo)

	rrReal := doJSON(t, h.RequestReset, `{"email":"real@x.com"}`)
	rrFake := doJSON(t, h.RequestReset, `{"email":"nonexistent@x.com"}`)

	if rrReal.Code != http.StatusOK || rrFake.Code != http.StatusOK {
		t.Fatalf("ожидался 200 для обоих, получено %d и %d", rrReal.Code, rrFake.Code)
	}
	// Побайтово одинаковые тела: по ответу нельзя понять, есть ли аккаунт
	if rrReal.Body.String() != rrFake.Body.String() {
		t.Fatalf("тела ответов различаются:\n%q\n%q", rrReal.Body.String(), rrFake.Body.String())
	}
}

func TestRequestReset_MissingEmail(t *testing.T) {
	repo := &stubResetRepo{}
	h := newPasswordHandler(repo)

	rr := doJSON(t, h.RequestReset, `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", rr.Code)
	}
	if repo.calls != 0 {
		t.Fatal("невалидный payload не должен трогать хранилище")
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	repo := &stubResetRepo{}
	h := newPasswordHandler(repo)

	rr := doJSON(t, h.ResetPassword, `{"token":"bogus","email":"u@test.com","password":"newpw12345"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid or expired token") {
		t.Fatalf("ожидалось сообщение про токен, получено: %s", rr.Body.String())
	}
}

func TestResetPassword_MissingFields(t *testing.T) {
	repo := &stubResetRepo{}
	h := newPasswordHandler(repo)

	rr := doJSON(t, h.ResetPassword, `{"token":"abc"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", rr.Code)
	}
	if repo.calls != 0 {
		t.Fatal("невалидный payload не должен трогать хранилище")
	}
}
