package services

import (
	"context"
	"fmt"
	"net/url"
	"secureapp/internal/logger"
	helpers "secureapp/internal/utils/helpers"
	"strings"

	"go.uber.org/zap"
)

// EmailNotifier кладёт письмо со ссылкой в очередь. Сам запрос ответа
// доставки не ждёт.
type EmailNotifier struct {
	frontendURL string
}

func NewEmailNotifier(frontendURL string) *EmailNotifier {
	return &EmailNotifier{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (n *EmailNotifier) resetLink(email, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		n.frontendURL, url.QueryEscape(token), url.QueryEscape(email))
}

// SendPasswordReset не завязан на HTTP-контекст: письмо уйдёт из очереди,
// даже если клиент уже отвалился.
func (n *EmailNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	link := n.resetLink(to, token)
	job := EmailJob{
		To:      []string{to},
		Subject: "Password Reset Request",
		Body:    helpers.BuildPasswordResetHTML(link),
		IsHTML:  true,
	}

	select {
	case EmailQueue <- job:
		return nil
	default:
		return fmt.Errorf("email queue is full")
	}
}

// LogNotifier — запасной вариант без SMTP: ссылка пишется в лог.
// Выбирается на старте процесса, внутри сервисов ветвления по провайдеру нет.
type LogNotifier struct {
	frontendURL string
}

func NewLogNotifier(frontendURL string) *LogNotifier {
	return &LogNotifier{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		n.frontendURL, url.QueryEscape(token), url.QueryEscape(to))
	logger.Log.Info("SMTP не настроен, ссылка сброса пароля",
		zap.String("email", to),
		zap.String("link", link),
	)
	return nil
}
