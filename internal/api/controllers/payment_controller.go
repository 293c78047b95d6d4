package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"premia/internal/gateway"
	"premia/internal/models/request_models"
	"premia/internal/models/response_models"
	"premia/internal/services"
	"premia/pkg/utils"
)

type PaymentController struct {
	purchaseService services.PurchaseServiceInterface
}

func NewPaymentController(purchaseService services.PurchaseServiceInterface) *PaymentController {
	return &PaymentController{
		purchaseService: purchaseService,
	}
}

func (p *PaymentController) Purchase(c *gin.Context) {
	var request request_models.PurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := p.purchaseService.Purchase(c.Request.Context(), userID, request.PlanID, request.PaymentMethod, request.AutoRenew)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, toPurchaseResponse(result), "Purchase processed")
}

// HandleWebhook receives the gateway's settlement callback. The payload's
// status vocabulary is the provider's; normalization happens inside the
// transaction ledger.
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	var settlement gateway.Settlement
	if err := c.ShouldBindJSON(&settlement); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if settlement.TransactionCode == "" {
		utils.RespondError(c, http.StatusBadRequest, "transaction_code is required")
		return
	}

	if err := p.purchaseService.HandleSettlement(c.Request.Context(), settlement); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Settlement processed")
}

func (p *PaymentController) RetryPayment(c *gin.Context) {
	code := c.Param("code")
	if !utils.IsTransactionCode(code) {
		utils.RespondError(c, http.StatusBadRequest, "Invalid transaction code")
		return
	}

	result, err := p.purchaseService.RetryPayment(c.Request.Context(), code)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, toPurchaseResponse(result), "Retry processed")
}

func toPurchaseResponse(result *services.PurchaseResult) response_models.PurchaseResponse {
	return response_models.PurchaseResponse{
		Success:      result.Success,
		Subscription: response_models.NewSubscriptionResponse(result.Subscription),
		Transaction:  response_models.NewTransactionResponse(result.Transaction),
		PaymentURL:   result.PaymentURL,
		QRPayload:    result.QRPayload,
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
