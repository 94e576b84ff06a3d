package order

import (
	"go.uber.org/zap"

	"atelier/internal/api"
	"atelier/internal/config"
	"atelier/internal/order/controller"
	"atelier/internal/order/service"
	"atelier/internal/order/usecase"
	"atelier/internal/realtime"
	"atelier/internal/store"
)

// Module is the order side of the service. The customer module reuses its
// reconciler and use case.
type Module struct {
	Controller *controller.OrderController
	UseCase    *usecase.OrderUseCase
	Reconciler *service.BalanceReconciler
}

func NewModule(
	gateway store.Gateway,
	notifier usecase.StatusNotifier,
	publisher realtime.Publisher,
	validator *api.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *Module {
	reconciler := service.NewBalanceReconciler(gateway, logger, nil)

	uc := usecase.NewOrderUseCase(
		gateway,
		reconciler,
		notifier,
		publisher,
		cfg.Order.BalanceUpdateMode,
		logger,
	)

	return &Module{
		Controller: controller.NewOrderController(uc, validator, logger),
		UseCase:    uc,
		Reconciler: reconciler,
	}
}
