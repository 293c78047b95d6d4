// Package memory holds in-memory repository implementations with the same
// conditional-update semantics as the postgres ones. They back unit tests and
// local development; production runs on the gorm repositories.
package memory

import (
	"time"

	"github.com/google/uuid"

	"premia/internal/models/db_models"
)

func stamp(b *db_models.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().Unix()
	if b.CreatedAt == 0 {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}
