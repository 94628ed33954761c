package metrics

import (
	"net/http"

	"restaurantpos/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds the order lifecycle counters
type Metrics struct {
	registry          *prometheus.Registry
	ordersCreated     prometheus.Counter
	orderValue        prometheus.Counter
	statusTransitions *prometheus.CounterVec
	menuChanges       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ordersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "restaurantpos",
			Name:      "orders_created_total",
			Help:      "Orders persisted with all of their line items.",
		}),
		orderValue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "restaurantpos",
			Name:      "order_value_total",
			Help:      "Sum of total_amount over created orders.",
		}),
		statusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restaurantpos",
			Name:      "order_status_transitions_total",
			Help:      "Accepted order status transitions.",
		}, []string{"from", "to"}),
		menuChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restaurantpos",
			Name:      "menu_changes_total",
			Help:      "Menu catalog mutations by operation.",
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveOrderCreated(total decimal.Decimal) {
	m.ordersCreated.Inc()
	value, _ := total.Float64()
	m.orderValue.Add(value)
}

func (m *Metrics) ObserveStatusChange(from, to models.OrderStatus) {
	m.statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ObserveMenuChange(operation string) {
	m.menuChanges.WithLabelValues(operation).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
