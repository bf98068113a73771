package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
)

// POSMetrics records order and inventory activity. A zero value (or a
// construction with a nil registerer) is a safe no-op so tests and the
// migrate command can skip registration entirely.
type POSMetrics struct {
	ordersCreated      prometheus.Counter
	ordersCancelled    prometheus.Counter
	ordersUpdated      prometheus.Counter
	ledgerEntries      *prometheus.CounterVec
	ingredientWarnings prometheus.Counter
	lowStockItems      prometheus.Gauge
}

// NewPOSMetrics registers the POS metrics on the provided registerer.
func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	if reg == nil {
		return &POSMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created.",
	})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled.",
	})
	ordersUpdated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_updated_total",
		Help: "Order item edits.",
	})
	ledgerEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_ledger_entries_total",
		Help: "Stock ledger entries appended, by kind.",
	}, []string{"kind"})
	ingredientWarnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingredient_warnings_total",
		Help: "Recipe lines that referenced a missing stock item.",
	})
	lowStockItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "low_stock_items",
		Help: "Active stock items at or below their alert threshold.",
	})
	reg.MustRegister(ordersCreated, ordersCancelled, ordersUpdated,
		ledgerEntries, ingredientWarnings, lowStockItems)
	return &POSMetrics{
		ordersCreated:      ordersCreated,
		ordersCancelled:    ordersCancelled,
		ordersUpdated:      ordersUpdated,
		ledgerEntries:      ledgerEntries,
		ingredientWarnings: ingredientWarnings,
		lowStockItems:      lowStockItems,
	}
}

// OrderCreated increments the created counter.
func (m *POSMetrics) OrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// OrderCancelled increments the cancelled counter.
func (m *POSMetrics) OrderCancelled() {
	if m == nil || m.ordersCancelled == nil {
		return
	}
	m.ordersCancelled.Inc()
}

// OrderUpdated increments the edit counter.
func (m *POSMetrics) OrderUpdated() {
	if m == nil || m.ordersUpdated == nil {
		return
	}
	m.ordersUpdated.Inc()
}

// IngredientWarning increments the missing-ingredient counter.
func (m *POSMetrics) IngredientWarning() {
	if m == nil || m.ingredientWarnings == nil {
		return
	}
	m.ingredientWarnings.Inc()
}

// LedgerEntry increments the ledger counter for the given kind.
func (m *POSMetrics) LedgerEntry(kind enums.LedgerEntryKind) {
	if m == nil || m.ledgerEntries == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(string(kind)).Inc()
}

// SetLowStockCount sets the low stock gauge to the current count.
func (m *POSMetrics) SetLowStockCount(count int64) {
	if m == nil || m.lowStockItems == nil {
		return
	}
	m.lowStockItems.Set(float64(count))
}
