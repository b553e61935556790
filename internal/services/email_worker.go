package services

import (
	"secureapp/internal/logger"

	"go.uber.org/zap"
)

type EmailJob struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

var EmailQueue = make(chan EmailJob, 100) // очередь на 100 писем

// StartEmailWorker разбирает очередь в фоне. Ошибки доставки только логируются:
// ответ клиенту от них не зависит.
func StartEmailWorker(emailService *EmailService) {
	go func() {
		for job := range EmailQueue {
			var err error
			if job.IsHTML {
				err = emailService.SendHTML(job.To, job.Subject, job.Body)
			} else {
				err = emailService.Send(job.To, job.Subject, job.Body)
			}
			if err != nil {
				logger.Log.Error("Не удалось отправить письмо", zap.Error(err))
			}
		}
	}()
}
