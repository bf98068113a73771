package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalacios-dev/comanda-backend/api/controllers"
	"github.com/jpalacios-dev/comanda-backend/api/middleware"
	"github.com/jpalacios-dev/comanda-backend/internal/catalog"
	"github.com/jpalacios-dev/comanda-backend/internal/orders"
	"github.com/jpalacios-dev/comanda-backend/internal/stock"
	"github.com/jpalacios-dev/comanda-backend/pkg/config"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
	pkgredis "github.com/jpalacios-dev/comanda-backend/pkg/redis"
)

// Params bundles everything the HTTP surface depends on. RedisStore and
// Gatherer are optional; leaving them nil disables idempotency replay
// protection and the metrics endpoint respectively.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DBPinger   controllers.Pinger
	RedisP     controllers.Pinger
	RedisStore pkgredis.IdempotencyStore
	Gatherer   prometheus.Gatherer

	Orders  orders.Service
	Stock   stock.Service
	Catalog catalog.Service
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(p.Config.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DBPinger, p.RedisP))
	})
	r.Get("/healthz", controllers.HealthReady(p.Config, p.Logger, p.DBPinger, p.RedisP))

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/api/v1/terminal/enroll", controllers.TerminalEnroll(p.Config.Terminal, p.Logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TerminalAuth(p.Config.Terminal, p.Logger))
		r.Use(middleware.Idempotency(p.RedisStore, p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(p.Orders, p.Logger))
			r.Post("/", controllers.CreateOrder(p.Orders, p.Logger))
			r.Get("/{id}", controllers.GetOrder(p.Orders, p.Logger))
			r.Post("/{id}/cancel", controllers.CancelOrder(p.Orders, p.Logger))
			r.Put("/{id}/items", controllers.UpdateOrderItems(p.Orders, p.Logger))
			r.Patch("/{id}/status", controllers.UpdateOrderStatus(p.Orders, p.Logger))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", controllers.ListStockItems(p.Stock, p.Logger))
			r.Post("/", controllers.CreateStockItem(p.Stock, p.Logger))
			r.Get("/low", controllers.LowStock(p.Stock, p.Logger))
			r.Get("/{id}", controllers.GetStockItem(p.Stock, p.Logger))
			r.Delete("/{id}", controllers.DeactivateStockItem(p.Stock, p.Logger))
			r.Post("/{id}/purchase", controllers.PurchaseStock(p.Stock, p.Logger))
			r.Post("/{id}/adjust", controllers.AdjustStock(p.Stock, p.Logger))
			r.Post("/{id}/fix", controllers.FixStock(p.Stock, p.Logger))
			r.Get("/{id}/ledger", controllers.StockLedger(p.Stock, p.Logger))
			r.Get("/{id}/purchases", controllers.StockPurchases(p.Stock, p.Logger))
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", controllers.ListMenuItems(p.Catalog, p.Logger))
			r.Get("/{id}", controllers.GetMenuItem(p.Catalog, p.Logger))
		})
	})

	return r
}
