package plan_fx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"premia/internal/api/controllers"
	"premia/internal/repositories"
	"premia/internal/services"
)

var Module = fx.Provide(
	providePlanRepository, providePlanService, providePlanController,
)

func providePlanRepository(db *gorm.DB) repositories.IPlanRepository {
	return repositories.NewPlanRepository(db)
}

func providePlanService(planRepo repositories.IPlanRepository, cache *redis.Client) services.PlanServiceInterface {
	return services.NewPlanService(planRepo, cache)
}

func providePlanController(planService services.PlanServiceInterface) *controllers.PlanController {
	return controllers.NewPlanController(planService)
}
