package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"premia/cmd/fx/db_fx"
	"premia/cmd/fx/notification_fx"
	"premia/cmd/fx/payment_fx"
	"premia/cmd/fx/plan_fx"
	"premia/cmd/fx/scheduler_fx"
	"premia/cmd/fx/subscription_fx"
	"premia/cmd/fx/transaction_fx"
	"premia/internal/api/controllers"
	"premia/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	app := fx.New(
		db_fx.Module,
		notification_fx.Module,
		plan_fx.Module,
		subscription_fx.Module,
		transaction_fx.Module,
		payment_fx.Module,
		scheduler_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				log.Printf("Starting HTTP server at :%s", port)
				if err := engine.Run(":" + port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	planController *controllers.PlanController,
	subscriptionController *controllers.SubscriptionController,
	paymentController *controllers.PaymentController,
	schedulerController *controllers.SchedulerController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, planController, subscriptionController, paymentController, schedulerController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	planController *controllers.PlanController,
	subscriptionController *controllers.SubscriptionController,
	paymentController *controllers.PaymentController,
	schedulerController *controllers.SchedulerController) {

	plansGroup := r.Group("/plans")
	plansGroup.GET("", planController.ListPlans)
	plansGroup.GET("/:id", planController.GetPlan)

	// Gateway callback, authenticated by the gateway's own payload, not JWT.
	r.POST("/payments/webhook", paymentController.HandleWebhook)

	userGroup := r.Group("/")
	userGroup.Use(middleware.JWTAuthMiddleware())
	userGroup.POST("/purchase", paymentController.Purchase)
	userGroup.POST("/payments/:code/retry", paymentController.RetryPayment)
	userGroup.GET("/subscriptions/me", subscriptionController.GetMySubscription)
	userGroup.GET("/subscriptions", subscriptionController.ListMySubscriptions)
	userGroup.POST("/subscriptions/:id/cancel", subscriptionController.Cancel)

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	adminGroup.POST("/plans", planController.CreatePlan)
	adminGroup.PUT("/plans/:id", planController.UpdatePlan)
	adminGroup.DELETE("/plans/:id", planController.DeactivatePlan)
	adminGroup.POST("/scheduler/run", schedulerController.RunNow)
	adminGroup.GET("/subscriptions/expired", schedulerController.ListExpired)
}
