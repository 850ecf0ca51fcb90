package handlers

import (
	"go.uber.org/zap"

	"luntera-pos-services/internal/cart"
	"luntera-pos-services/internal/config"
	"luntera-pos-services/internal/directory"
	"luntera-pos-services/internal/fiscal"
	"luntera-pos-services/internal/netstatus"
	"luntera-pos-services/internal/payment"
	"luntera-pos-services/internal/storage"
)

type Handler struct {
	Carts     *cart.Store
	Payments  *payment.Coordinator
	Invoices  *fiscal.Reconciler
	Monitor   *netstatus.Monitor
	Directory *directory.Directory
	Archive   *storage.ObjectStore
	Logger    *zap.Logger
	Config    config.Config
}
