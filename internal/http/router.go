package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"luntera-pos-services/internal/config"
	"luntera-pos-services/internal/http/handlers"
	"luntera-pos-services/internal/middleware"
	"luntera-pos-services/internal/ws"
)

// NewRouter wires the control-plane API the UI shell talks to. Login and
// status endpoints stay open; everything else requires a staff token.
func NewRouter(h *handlers.Handler, wsServer *ws.Server, logger *zap.Logger, cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(cfg.TerminalID))
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/api/auth/login", h.StaffLogin)
	r.Get("/api/status", h.StatusGet)
	r.Post("/api/status/probe", h.StatusProbe)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret))

		r.Get("/slots", h.SlotsList)
		r.Post("/slots/recover", h.SlotsRecover)
		r.Post("/slots/{slotId}/open", h.SlotOpen)
		r.Post("/slots/{slotId}/close", h.SlotClose)
		r.Post("/slots/{slotId}/activate", h.SlotActivate)
		r.Get("/slots/{slotId}/cart", h.SlotCartGet)
		r.Put("/slots/{slotId}/cart/items/{itemId}", h.SlotCartItemPut)
		r.Delete("/slots/{slotId}/cart/items/{itemId}", h.SlotCartItemDelete)
		r.Delete("/slots/{slotId}/cart", h.SlotCartClear)

		r.Post("/payments", h.PaymentCreate)
		r.Get("/payments/{sessionId}", h.PaymentGet)
		r.Post("/payments/{sessionId}/allocate", h.PaymentAllocate)
		r.Post("/payments/{sessionId}/confirm", h.PaymentConfirm)
		r.Post("/payments/{sessionId}/cancel", h.PaymentCancel)
		r.Post("/payments/change", h.ChangeCompute)

		r.Get("/invoices", h.InvoicesList)
		r.Get("/invoices/archive", h.InvoicesArchiveList)
		r.Post("/invoices/submit-all", h.InvoicesSubmitAll)
		r.Post("/invoices/{invoiceId}/retry", h.InvoiceRetry)

		r.Get("/quick-switch", h.QuickSwitch)
		r.Get("/receipts/{sessionId}", h.ReceiptPDF)
	})

	if wsServer != nil {
		r.Get("/ws/status", wsServer.HandleStatusStream)
	}

	return r
}
