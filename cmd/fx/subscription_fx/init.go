package subscription_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"premia/internal/api/controllers"
	"premia/internal/repositories"
	"premia/internal/services"
)

var Module = fx.Provide(
	provideSubscriptionRepository, provideSubscriptionService, provideSubscriptionController,
)

func provideSubscriptionRepository(db *gorm.DB) repositories.ISubscriptionRepository {
	return repositories.NewSubscriptionRepository(db)
}

func provideSubscriptionService(
	subRepo repositories.ISubscriptionRepository,
	planRepo repositories.IPlanRepository,
) services.SubscriptionServiceInterface {
	return services.NewSubscriptionService(subRepo, planRepo)
}

func provideSubscriptionController(
	subService services.SubscriptionServiceInterface,
	notifier services.NotificationServiceInterface,
) *controllers.SubscriptionController {
	return controllers.NewSubscriptionController(subService, notifier)
}
