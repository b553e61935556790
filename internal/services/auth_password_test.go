package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newPasswordFixture(t *testing.T) (*mockUserRepo, *mockNotifier, *PasswordService, *AuthService) {
	t.Helper()
	repo := newMockUserRepo()
	notifier := &mockNotifier{}
	svc := NewPasswordService(repo, notifier, time.Hour, 6)
	auth := NewAuthService(repo, 6)
	return repo, notifier, svc, auth
}

func TestRequestReset_UnknownEmailSilent(t *testing.T) {
	_, notifier, svc, _ := newPasswordFixture(t)

	// Несуществующий email: тот же nil, письмо не уходит
	if err := svc.RequestReset(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("ожидался nil для незарегистрированного email, получено: %v", err)
	}
	if notifier.sentCount() != 0 {
		t.Fatal("письмо не должно отправляться несуществующему аккаунту")
	}
}

func TestRequestReset_SendsTokenForExistingAccount(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	if err := svc.RequestReset(context.Background(), "U@Test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}
	if notifier.sentCount() != 1 {
		t.Fatalf("ожидалось одно письмо, отправлено %d", notifier.sentCount())
	}
	if notifier.lastToken() == "" {
		t.Fatal("токен не передан нотификатору")
	}
}

func TestRequestReset_SameResultForExistingAndUnknown(t *testing.T) {
	_, _, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "real@x.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	// Наблюдаемый результат сервиса одинаков: nil в обоих случаях, повторные
	// вызовы — тоже nil
	for _, email := range []string{"real@x.com", "nonexistent@x.com"} {
		for i := 0; i < 2; i++ {
			if err := svc.RequestReset(context.Background(), email); err != nil {
				t.Fatalf("RequestReset(%q) вернул %v", email, err)
			}
		}
	}
}

func TestRequestReset_NotifierFailureSwallowed(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)
	notifier.err = errors.New("smtp down")

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("сбой доставки не должен всплывать: %v", err)
	}
}

func TestRequestReset_OverwritesPreviousToken(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка первого запроса: %v", err)
	}
	first := notifier.lastToken()

	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка второго запроса: %v", err)
	}
	second := notifier.lastToken()

	if first == second {
		t.Fatal("повторный запрос должен выдавать новый токен")
	}
	// Старый токен вытеснен — слот один
	if _, err := svc.ValidateToken(context.Background(), "u@test.com", first); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("старый токен должен быть недействителен, получено: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), "u@test.com", second); err != nil {
		t.Fatalf("новый токен должен работать: %v", err)
	}
}

func TestValidateToken_WrongEmail(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if _, err := auth.RegisterUser(context.Background(), "other@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}

	// Чужой email с правильным токеном не проходит: матчится пара (токен, email)
	_, err := svc.ValidateToken(context.Background(), "other@test.com", notifier.lastToken())
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("ожидалась ErrInvalidOrExpiredToken, получено: %v", err)
	}
}

func TestValidateToken_ExpiryBoundary(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }
	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}
	token := notifier.lastToken()

	// За миллисекунду до истечения — валиден
	svc.now = func() time.Time { return issuedAt.Add(time.Hour - time.Millisecond) }
	if _, err := svc.ValidateToken(context.Background(), "u@test.com", token); err != nil {
		t.Fatalf("токен до истечения должен быть валиден: %v", err)
	}

	// Через миллисекунду после — нет
	svc.now = func() time.Time { return issuedAt.Add(time.Hour + time.Millisecond) }
	if _, err := svc.ValidateToken(context.Background(), "u@test.com", token); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("просроченный токен должен отклоняться, получено: %v", err)
	}

	// Просроченный токен остаётся в слоте, но свежий запрос его перезаписывает
	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка повторного запроса: %v", err)
	}
	svc.now = time.Now
	if _, err := svc.ValidateToken(context.Background(), "u@test.com", notifier.lastToken()); err != nil {
		t.Fatalf("новый токен должен работать: %v", err)
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}
	token := notifier.lastToken()

	if err := svc.ResetPassword(context.Background(), "u@test.com", token, "newpw12345"); err != nil {
		t.Fatalf("первый сброс должен пройти: %v", err)
	}
	err := svc.ResetPassword(context.Background(), "u@test.com", token, "anotherpw1")
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("повторное использование токена должно отклоняться, получено: %v", err)
	}
}

func TestResetPassword_WeakPassword(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}

	err := svc.ResetPassword(context.Background(), "u@test.com", notifier.lastToken(), "123")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("ожидалась ErrWeakPassword, получено: %v", err)
	}
	// Слишком короткий пароль не гасит токен
	if _, err := svc.ValidateToken(context.Background(), "u@test.com", notifier.lastToken()); err != nil {
		t.Fatalf("токен должен остаться рабочим: %v", err)
	}
}

func TestResetPassword_ConcurrentSingleWinner(t *testing.T) {
	repo, notifier, svc, auth := newPasswordFixture(t)

	if _, err := auth.RegisterUser(context.Background(), "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if err := svc.RequestReset(context.Background(), "u@test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}
	token := notifier.lastToken()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.ResetPassword(context.Background(), "u@test.com", token, "newpw12345")
		}(i)
	}
	wg.Wait()

	var okCount, invalidCount int
	for _, err := range results {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrInvalidOrExpiredToken):
			invalidCount++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	if okCount != 1 || invalidCount != 1 {
		t.Fatalf("ожидался ровно один победитель, получено ok=%d invalid=%d", okCount, invalidCount)
	}

	// Ни одного промежуточного состояния: токен погашен, пароль сменён
	u, err := repo.GetUserByEmail(context.Background(), "u@test.com")
	if err != nil {
		t.Fatalf("пользователь пропал: %v", err)
	}
	if u.ResetTokenHash != nil || u.ResetExpiresAt != nil {
		t.Fatal("токен должен быть очищен вместе со сменой пароля")
	}
}

func TestPasswordResetEndToEnd(t *testing.T) {
	_, notifier, svc, auth := newPasswordFixture(t)
	ctx := context.Background()

	if _, err := auth.RegisterUser(ctx, "u@test.com", "pw123456"); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if err := svc.RequestReset(ctx, "u@test.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}
	token := notifier.lastToken()

	if err := svc.ResetPassword(ctx, "u@test.com", token, "newpw12345"); err != nil {
		t.Fatalf("ошибка сброса пароля: %v", err)
	}

	// Старый пароль больше не работает
	if _, _, err := auth.LoginUser(ctx, "u@test.com", "pw123456", "secret", time.Minute); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("вход по старому паролю должен отклоняться, получено: %v", err)
	}
	// Новый — работает
	if _, _, err := auth.LoginUser(ctx, "u@test.com", "newpw12345", "secret", time.Minute); err != nil {
		t.Fatalf("вход по новому паролю должен пройти: %v", err)
	}
	// Токен одноразовый
	if err := svc.ResetPassword(ctx, "u@test.com", token, "thirdpw123"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("повторный сброс тем же токеном должен отклоняться, получено: %v", err)
	}
}
