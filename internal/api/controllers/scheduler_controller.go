package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"premia/internal/models/response_models"
	"premia/internal/repositories"
	"premia/internal/scheduler"
	"premia/pkg/utils"
)

// SchedulerController exposes the manual "run all checks now" entry point and
// a couple of operational queries for support staff.
type SchedulerController struct {
	jobs    *scheduler.Jobs
	subRepo repositories.ISubscriptionRepository
}

func NewSchedulerController(jobs *scheduler.Jobs, subRepo repositories.ISubscriptionRepository) *SchedulerController {
	return &SchedulerController{
		jobs:    jobs,
		subRepo: subRepo,
	}
}

func (s *SchedulerController) RunNow(c *gin.Context) {
	report := s.jobs.RunAll(c.Request.Context())
	utils.RespondSuccess(c, report, "Reconciliation run complete")
}

// ListExpired returns subscriptions that have passed their end date but are
// still marked active, i.e. rows the hourly sweep has not reached yet.
func (s *SchedulerController) ListExpired(c *gin.Context) {
	subs, err := s.subRepo.ListActiveExpiredBefore(c.Request.Context(), utils.NowUnixSeconds())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]response_models.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, response_models.NewSubscriptionResponse(&subs[i]))
	}
	utils.RespondSuccess(c, out, "Expired subscriptions fetched")
}
