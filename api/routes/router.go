package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zaymart/zaymart-backend/api/controllers"
	"github.com/zaymart/zaymart-backend/api/middleware"
	"github.com/zaymart/zaymart-backend/internal/ledger"
	"github.com/zaymart/zaymart-backend/internal/orders"
	"github.com/zaymart/zaymart-backend/internal/payouts"
	"github.com/zaymart/zaymart-backend/internal/settlement"
	"github.com/zaymart/zaymart-backend/internal/wallet"
	"github.com/zaymart/zaymart-backend/pkg/config"
	"github.com/zaymart/zaymart-backend/pkg/db"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	idemStore redis.IdempotencyStore,
	ordersSvc orders.Service,
	settlementSvc settlement.Service,
	walletSvc wallet.Service,
	ledgerSvc ledger.Service,
	payoutsSvc payouts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Lifecycle events from the logistics provider are replay-safe through
	// the ledger idempotency keys; they bypass the user auth chain.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/orders", controllers.OrderWebhook(ordersSvc, settlementSvc, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersSvc, logg))
		})
		r.Route("/v1/sub-orders", func(r chi.Router) {
			r.Post("/{subOrderId}/status", controllers.TransitionSubOrder(ordersSvc, settlementSvc, logg))
		})

		r.Route("/v1/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleVendor), logg))
			r.Use(middleware.VendorContext(logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", controllers.VendorWalletBalance(walletSvc, ledgerSvc, logg))
				r.Get("/transactions", controllers.VendorWalletTransactions(ledgerSvc, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))

			r.Route("/payouts", func(r chi.Router) {
				r.Post("/", controllers.AdminCreatePayout(payoutsSvc, logg))
				r.Post("/{payoutTxnId}/fail", controllers.AdminFailPayout(payoutsSvc, logg))
			})
		})
	})

	return r
}
