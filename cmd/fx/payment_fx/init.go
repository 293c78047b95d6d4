package payment_fx

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/fx"

	"premia/internal/api/controllers"
	"premia/internal/gateway"
	"premia/internal/services"
	"premia/pkg/memcache"
)

var Module = fx.Options(
	fx.Provide(
		provideSettlementWaiters,
		provideSimulator,
		provideGateway,
		providePurchaseService,
		providePaymentController,
	),
	// Bind after construction: the simulator and the settlement processor
	// depend on each other.
	fx.Invoke(bindGateway),
)

func provideSettlementWaiters() *memcache.SettlementWaiters {
	return memcache.NewSettlementWaiters()
}

func provideSimulator() *gateway.Simulator {
	return gateway.NewSimulator(gateway.SimulatorConfig{
		Outcome:  gateway.Outcome(os.Getenv("GATEWAY_SIM_OUTCOME")),
		MinDelay: envDuration("GATEWAY_SIM_MIN_DELAY"),
		MaxDelay: envDuration("GATEWAY_SIM_MAX_DELAY"),
		BaseURL:  os.Getenv("GATEWAY_SIM_BASE_URL"),
	})
}

func provideGateway(sim *gateway.Simulator) gateway.Gateway {
	return sim
}

func providePurchaseService(
	planService services.PlanServiceInterface,
	subService services.SubscriptionServiceInterface,
	txnService services.TransactionServiceInterface,
	gw gateway.Gateway,
	waiters *memcache.SettlementWaiters,
	notifier services.NotificationServiceInterface,
) services.PurchaseServiceInterface {
	return services.NewPurchaseService(
		planService, subService, txnService, gw, waiters, notifier,
		envDuration("PURCHASE_SETTLE_WAIT"),
	)
}

func providePaymentController(purchaseService services.PurchaseServiceInterface) *controllers.PaymentController {
	return controllers.NewPaymentController(purchaseService)
}

func bindGateway(sim *gateway.Simulator, purchaseService services.PurchaseServiceInterface) {
	sim.Bind(func(settlement gateway.Settlement) {
		if err := purchaseService.HandleSettlement(context.Background(), settlement); err != nil {
			log.Printf("settlement handling failed txn=%s: %v", settlement.TransactionCode, err)
		}
	})
}

func envDuration(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid duration in %s: %v", key, err)
		return 0
	}
	return d
}
