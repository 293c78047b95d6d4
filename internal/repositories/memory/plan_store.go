package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"premia/internal/models/db_models"
	"premia/internal/repositories"
)

type PlanStore struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]db_models.Plan
}

func NewPlanStore() *PlanStore {
	return &PlanStore{plans: make(map[uuid.UUID]db_models.Plan)}
}

var _ repositories.IPlanRepository = (*PlanStore)(nil)

func (s *PlanStore) GetPlanByID(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[planID]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (s *PlanStore) ListActivePlans(ctx context.Context) ([]db_models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Plan
	for _, p := range s.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *PlanStore) CreatePlan(ctx context.Context, plan *db_models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&plan.BaseModel)
	s.plans[plan.ID] = *plan
	return nil
}

func (s *PlanStore) UpdatePlan(ctx context.Context, planID uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[planID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyPlanFields(&plan, fields)
	stamp(&plan.BaseModel)
	s.plans[planID] = plan
	return nil
}

func applyPlanFields(p *db_models.Plan, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "description":
			p.Description = v.(*string)
		case "price_minor":
			p.PriceMinor = v.(int64)
		case "currency":
			p.Currency = v.(string)
		case "duration_days":
			p.DurationDays = v.(int)
		case "billing_type":
			p.BillingType = v.(db_models.BillingType)
		case "features":
			p.Features = toFeatures(v)
		case "is_active":
			p.IsActive = v.(bool)
		case "sort_order":
			p.SortOrder = v.(int)
		case "is_recommended":
			p.IsRecommended = v.(bool)
		case "discount_percent":
			p.DiscountPercent = v.(int)
		}
	}
}

func toFeatures(v interface{}) pq.StringArray {
	switch t := v.(type) {
	case pq.StringArray:
		return t
	case []string:
		return pq.StringArray(t)
	default:
		return nil
	}
}
