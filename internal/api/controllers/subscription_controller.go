package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"premia/internal/models/request_models"
	"premia/internal/models/response_models"
	"premia/internal/services"
	"premia/pkg/utils"
)

type SubscriptionController struct {
	subService services.SubscriptionServiceInterface
	notifier   services.NotificationServiceInterface
}

func NewSubscriptionController(subService services.SubscriptionServiceInterface, notifier services.NotificationServiceInterface) *SubscriptionController {
	return &SubscriptionController{
		subService: subService,
		notifier:   notifier,
	}
}

func (s *SubscriptionController) GetMySubscription(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	sub, err := s.subService.GetActiveByUser(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewSubscriptionResponse(sub), "Subscription fetched successfully")
}

func (s *SubscriptionController) ListMySubscriptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	subs, err := s.subService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	out := make([]response_models.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, response_models.NewSubscriptionResponse(&subs[i]))
	}
	utils.RespondSuccess(c, out, "Subscriptions fetched successfully")
}

func (s *SubscriptionController) Cancel(c *gin.Context) {
	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid subscription id")
		return
	}

	var request request_models.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	sub, err := s.subService.GetByID(c.Request.Context(), subID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if sub.UserID != userID {
		utils.RespondError(c, http.StatusForbidden, "Forbidden")
		return
	}

	cancelled, err := s.subService.Cancel(c.Request.Context(), subID, request.Reason)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	s.notifier.Dispatch(c.Request.Context(), services.EventSubscriptionCancelled, userID, map[string]interface{}{
		"subscription_id": subID.String(),
		"reason":          request.Reason,
	})
	utils.RespondSuccess(c, response_models.NewSubscriptionResponse(cancelled), "Subscription cancelled")
}
