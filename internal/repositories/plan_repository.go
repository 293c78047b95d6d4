package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"premia/internal/models/db_models"
)

type IPlanRepository interface {
	// GetPlanByID returns (nil, nil) when the plan does not exist. Inactive
	// plans are returned too; existing subscriptions still reference them.
	GetPlanByID(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error)
	ListActivePlans(ctx context.Context) ([]db_models.Plan, error)
	CreatePlan(ctx context.Context, plan *db_models.Plan) error
	UpdatePlan(ctx context.Context, planID uuid.UUID, fields map[string]interface{}) error
}

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) IPlanRepository {
	return &PlanRepository{db: db}
}

func (p *PlanRepository) GetPlanByID(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error) {
	var plan db_models.Plan
	err := p.db.WithContext(ctx).First(&plan, "id = ?", planID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (p *PlanRepository) ListActivePlans(ctx context.Context) ([]db_models.Plan, error) {
	var plans []db_models.Plan
	err := p.db.WithContext(ctx).
		Where("is_active = TRUE").
		Order("sort_order ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (p *PlanRepository) CreatePlan(ctx context.Context, plan *db_models.Plan) error {
	return p.db.WithContext(ctx).Create(plan).Error
}

func (p *PlanRepository) UpdatePlan(ctx context.Context, planID uuid.UUID, fields map[string]interface{}) error {
	res := p.db.WithContext(ctx).
		Model(&db_models.Plan{}).
		Where("id = ?", planID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
