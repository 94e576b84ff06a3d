package customer

import (
	"go.uber.org/zap"

	"atelier/internal/api"
	"atelier/internal/customer/controller"
	"atelier/internal/customer/usecase"
	"atelier/internal/store"
)

func NewModule(
	gateway store.Gateway,
	recomputer usecase.BalanceRecomputer,
	orders controller.OrderLister,
	validator *api.Validator,
	logger *zap.Logger,
) *controller.CustomerController {
	uc := usecase.NewCustomerUseCase(gateway, recomputer, logger)
	return controller.NewCustomerController(uc, orders, validator, logger)
}
