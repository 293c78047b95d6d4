package notification_fx

import (
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"premia/internal/services"
)

var Module = fx.Provide(
	provideMailService, provideNotificationService,
)

// provideMailService returns nil when SMTP env is absent; notifications then
// log only.
func provideMailService() services.IMailService {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	cfg := services.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
		AppName:  os.Getenv("APP_NAME"),
	}

	mailer, err := services.NewSMTPMailService(cfg, resolveUserEmail)
	if err != nil {
		log.Printf("SMTP not configured, mail delivery disabled: %v", err)
		return nil
	}
	return mailer
}

// resolveUserEmail asks the auth service for the user's address. Until that
// endpoint exists, the MAIL_FALLBACK_TO override is the only deliverable
// target.
// TODO: call the auth service user lookup once it exposes one.
func resolveUserEmail(userID uuid.UUID) (string, bool) {
	if to := os.Getenv("MAIL_FALLBACK_TO"); to != "" {
		return to, true
	}
	return "", false
}

func provideNotificationService(mailer services.IMailService) services.NotificationServiceInterface {
	return services.NewNotificationService(mailer)
}
