package transaction_fx

import (
	"os"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"premia/internal/repositories"
	"premia/internal/services"
)

var Module = fx.Provide(
	provideTransactionRepository, provideTransactionService,
)

func provideTransactionRepository(db *gorm.DB) repositories.ITransactionRepository {
	return repositories.NewTransactionRepository(db)
}

func provideTransactionService(txnRepo repositories.ITransactionRepository) services.TransactionServiceInterface {
	return services.NewTransactionService(txnRepo, enabledMethods())
}

// PAYMENT_METHODS is a comma separated override, e.g. "card,wallet".
func enabledMethods() []string {
	raw := os.Getenv("PAYMENT_METHODS")
	if raw == "" {
		return nil
	}
	var methods []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, m)
		}
	}
	return methods
}
