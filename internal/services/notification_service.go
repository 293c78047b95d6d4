package services

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Lifecycle events handed to the notification dispatcher. Delivery mechanics
// (push, email rendering, localization) live behind IMailService and friends.
const (
	EventSubscriptionCreated      = "subscription_created"
	EventSubscriptionActivated    = "subscription_activated"
	EventSubscriptionExpired      = "subscription_expired"
	EventSubscriptionExpiringSoon = "subscription_expiring_soon"
	EventSubscriptionCancelled    = "subscription_cancelled"
	EventPaymentCompleted         = "payment_completed"
	EventPaymentFailed            = "payment_failed"
)

type NotificationServiceInterface interface {
	// Dispatch fires a lifecycle event. It never returns an error: delivery
	// problems must not bleed into the lifecycle engine.
	Dispatch(ctx context.Context, event string, userID uuid.UUID, payload map[string]interface{})
}

type NotificationService struct {
	mailer IMailService // nil when SMTP is not configured
}

func NewNotificationService(mailer IMailService) NotificationServiceInterface {
	return &NotificationService{mailer: mailer}
}

func (n *NotificationService) Dispatch(ctx context.Context, event string, userID uuid.UUID, payload map[string]interface{}) {
	log.Printf("notify user=%s event=%s payload=%v", userID, event, payload)

	if n.mailer == nil {
		return
	}

	subject, body := renderEventMail(event, payload)
	if subject == "" {
		return
	}

	// Fire and forget; SMTP latency must not block a purchase or a sweep.
	go func() {
		if err := n.mailer.SendLifecycleMail(userID, subject, body); err != nil {
			log.Printf("notification mail failed user=%s event=%s: %v", userID, event, err)
		}
	}()
}

func renderEventMail(event string, payload map[string]interface{}) (subject, body string) {
	switch event {
	case EventSubscriptionActivated:
		return "Your premium subscription is active", "Thanks for your purchase. Premium features are unlocked on your account."
	case EventSubscriptionExpired:
		return "Your premium subscription has expired", "Your subscription period has ended. Renew any time to keep premium features."
	case EventSubscriptionExpiringSoon:
		return "Your premium subscription expires soon", "Your subscription is about to expire. Renew to avoid losing premium features."
	case EventSubscriptionCancelled:
		return "Your subscription was cancelled", "Your premium subscription has been cancelled. We'd love to have you back."
	case EventPaymentFailed:
		return "We couldn't process your payment", "Your latest payment did not go through. Please retry or use a different method."
	}
	// created/completed are in-app only, no mail
	return "", ""
}
