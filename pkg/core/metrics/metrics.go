// Package metrics собирает Prometheus метрики слоя совместимости.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы транзакций
const (
	OutcomeOK          = "ok"
	OutcomeRemoteError = "remote_error"
	OutcomeTransport   = "transport_failure"
	OutcomeFallback    = "default_impl"
)

// Config конфигурация системы метрик
type Config struct {
	// Namespace префикс для Prometheus метрик
	Namespace string `mapstructure:"namespace"`
	// Addr адрес HTTP endpoint /metrics; пустая строка отключает его
	Addr string `mapstructure:"addr"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{Namespace: "media_compat", Addr: ""}
}

// Collector набор метрик
type Collector struct {
	Transactions        *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	DefaultImplCalls    *prometheus.CounterVec
	Broadcasts          *prometheus.CounterVec
	DeadCallbacks       *prometheus.CounterVec
	RegisteredCallbacks prometheus.Gauge
	PendingDrained      prometheus.Counter
	Handshakes          *prometheus.CounterVec
	BrowserMessages     *prometheus.CounterVec
	Subscriptions       prometheus.Gauge
	BrowserConnections  *prometheus.CounterVec
}

// NewCollector регистрирует метрики в reg
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binder",
			Name:      "transactions_total",
			Help:      "Number of proxy transactions by interface, method and outcome",
		}, []string{"interface", "method", "outcome"}),
		TransactionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binder",
			Name:      "transaction_duration_seconds",
			Help:      "Two-way transaction round-trip time",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"interface"}),
		DefaultImplCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binder",
			Name:      "default_impl_calls_total",
			Help:      "Calls delegated to the default implementation after a transport failure",
		}, []string{"interface"}),
		Broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "broadcasts_total",
			Help:      "Controller callback broadcasts by event",
		}, []string{"event"}),
		DeadCallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "dead_callbacks_total",
			Help:      "Broadcast deliveries that failed because the controller is gone",
		}, []string{"event"}),
		RegisteredCallbacks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "registered_callbacks",
			Help:      "Remote controller callbacks currently registered",
		}),
		PendingDrained: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "pending_callbacks_drained_total",
			Help:      "Callbacks registered with the session after the extra binder arrived",
		}),
		Handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "extra_binder_handshakes_total",
			Help:      "Extra binder requests by result",
		}, []string{"result"}),
		BrowserMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "messages_total",
			Help:      "Browser protocol messages by direction and type",
		}, []string{"direction", "what"}),
		Subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "subscriptions",
			Help:      "Active browser subscriptions on the service side",
		}),
		BrowserConnections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "connections_total",
			Help:      "Browser connection attempts by result",
		}, []string{"result"}),
	}
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default возвращает набор метрик, зарегистрированный в prometheus.DefaultRegisterer
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector(DefaultConfig().Namespace, prometheus.DefaultRegisterer)
	})
	return defaultCollector
}
