package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"premia/internal/models/db_models"
	"premia/internal/models/request_models"
	"premia/internal/models/response_models"
	"premia/internal/repositories"
	"premia/pkg/utils"
)

const (
	activePlansCacheKey = "plans:active"
	plansCacheTTL       = 5 * time.Minute
)

type PlanServiceInterface interface {
	ListPlans(ctx context.Context) ([]response_models.PlanResponse, error)
	// GetPlanByID resolves a plan regardless of its active flag; lookups for
	// existing subscriptions must keep working after a plan is retired.
	GetPlanByID(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error)
	CreatePlan(ctx context.Context, req request_models.UpsertPlanRequest) (*db_models.Plan, error)
	UpdatePlan(ctx context.Context, planID uuid.UUID, req request_models.UpsertPlanRequest) error
	DeactivatePlan(ctx context.Context, planID uuid.UUID) error
}

type PlanService struct {
	planRepo repositories.IPlanRepository
	cache    *redis.Client // nil disables caching
}

func NewPlanService(planRepo repositories.IPlanRepository, cache *redis.Client) PlanServiceInterface {
	return &PlanService{
		planRepo: planRepo,
		cache:    cache,
	}
}

func (p *PlanService) ListPlans(ctx context.Context) ([]response_models.PlanResponse, error) {
	if cached := p.readCache(ctx); cached != nil {
		return cached, nil
	}

	plans, err := p.planRepo.ListActivePlans(ctx)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	out := make([]response_models.PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, response_models.NewPlanResponse(&plans[i]))
	}

	p.writeCache(ctx, out)
	return out, nil
}

func (p *PlanService) GetPlanByID(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error) {
	plan, err := p.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if plan == nil {
		return nil, utils.ErrPlanNotFound
	}
	return plan, nil
}

func (p *PlanService) CreatePlan(ctx context.Context, req request_models.UpsertPlanRequest) (*db_models.Plan, error) {
	if err := validatePlanFields(req); err != nil {
		return nil, err
	}

	plan := &db_models.Plan{
		Name:            req.Name,
		Description:     req.Description,
		PriceMinor:      req.PriceMinor,
		Currency:        req.Currency,
		DurationDays:    req.DurationDays,
		BillingType:     db_models.BillingType(req.BillingType),
		Features:        pq.StringArray(req.Features),
		IsActive:        true,
		SortOrder:       req.SortOrder,
		IsRecommended:   req.IsRecommended,
		DiscountPercent: req.DiscountPercent,
	}
	if plan.BillingType == db_models.BillingLifetime {
		plan.DurationDays = db_models.DurationLifetime
	}

	if err := p.planRepo.CreatePlan(ctx, plan); err != nil {
		return nil, utils.ErrDatabaseError
	}

	p.dropCache(ctx)
	return plan, nil
}

func (p *PlanService) UpdatePlan(ctx context.Context, planID uuid.UUID, req request_models.UpsertPlanRequest) error {
	if err := validatePlanFields(req); err != nil {
		return err
	}

	existing, err := p.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if existing == nil {
		return utils.ErrPlanNotFound
	}

	// Price/flags apply to future purchases only; existing subscriptions keep
	// the amounts captured at purchase time.
	fields := map[string]interface{}{
		"name":             req.Name,
		"description":      req.Description,
		"price_minor":      req.PriceMinor,
		"currency":         req.Currency,
		"sort_order":       req.SortOrder,
		"is_recommended":   req.IsRecommended,
		"discount_percent": req.DiscountPercent,
		"features":         pq.StringArray(req.Features),
	}
	if err := p.planRepo.UpdatePlan(ctx, planID, fields); err != nil {
		return utils.ErrDatabaseError
	}

	p.dropCache(ctx)
	return nil
}

// DeactivatePlan is the only form of deletion; historical subscriptions
// reference plans forever, so rows are never removed.
func (p *PlanService) DeactivatePlan(ctx context.Context, planID uuid.UUID) error {
	existing, err := p.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if existing == nil {
		return utils.ErrPlanNotFound
	}

	if err := p.planRepo.UpdatePlan(ctx, planID, map[string]interface{}{"is_active": false}); err != nil {
		return utils.ErrDatabaseError
	}

	p.dropCache(ctx)
	return nil
}

func validatePlanFields(req request_models.UpsertPlanRequest) error {
	if req.Name == "" || req.PriceMinor <= 0 {
		return utils.ErrInvalidPlanFields
	}
	switch db_models.BillingType(req.BillingType) {
	case db_models.BillingMonthly, db_models.BillingYearly:
		if req.DurationDays < 0 || req.DurationDays > 365 {
			return utils.ErrInvalidPlanFields
		}
	case db_models.BillingLifetime:
		// duration ignored, sentinel applied on create
	default:
		return utils.ErrInvalidPlanFields
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return utils.ErrInvalidPlanFields
	}
	return nil
}

func (p *PlanService) readCache(ctx context.Context) []response_models.PlanResponse {
	if p.cache == nil {
		return nil
	}
	raw, err := p.cache.Get(ctx, activePlansCacheKey).Result()
	if err != nil {
		return nil
	}
	var plans []response_models.PlanResponse
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		return nil
	}
	return plans
}

func (p *PlanService) writeCache(ctx context.Context, plans []response_models.PlanResponse) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(plans)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, activePlansCacheKey, raw, plansCacheTTL).Err(); err != nil {
		log.Printf("plan cache write failed: %v", err)
	}
}

func (p *PlanService) dropCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Del(ctx, activePlansCacheKey).Err(); err != nil {
		log.Printf("plan cache invalidation failed: %v", err)
	}
}
