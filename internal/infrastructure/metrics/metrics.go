package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Posting metrics
	TransactionsPosted   prometheus.Counter
	TransactionsReversed prometheus.Counter
	PostingDuration      prometheus.Histogram
	PostingErrors        *prometheus.CounterVec

	// Lot metrics
	LotsOpened      prometheus.Counter
	Disposals       *prometheus.CounterVec
	DisposalGain    prometheus.Histogram
	WashSales       prometheus.Counter
	PositionsFrozen prometheus.Counter

	// Corporate action metrics
	CorporateActions *prometheus.CounterVec

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBConnections prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Posting metrics
		TransactionsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_transactions_posted_total",
			Help: "Total number of journal transactions posted",
		}),
		TransactionsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_transactions_reversed_total",
			Help: "Total number of journal transactions reversed",
		}),
		PostingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lotledger_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_posting_errors_total",
				Help: "Total number of posting errors by type",
			},
			[]string{"error_type"},
		),

		// Lot metrics
		LotsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_lots_opened_total",
			Help: "Total number of tax lots opened",
		}),
		Disposals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_disposals_total",
				Help: "Total number of disposals by selection method",
			},
			[]string{"method"},
		),
		DisposalGain: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lotledger_disposal_gain_loss",
			Help:    "Realized gain or loss per disposal",
			Buckets: []float64{-100000, -10000, -1000, -100, 0, 100, 1000, 10000, 100000},
		}),
		WashSales: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_wash_sales_total",
			Help: "Total number of disposals with a wash-sale adjustment",
		}),
		PositionsFrozen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_positions_frozen_total",
			Help: "Total number of positions frozen on detected inconsistency",
		}),

		// Corporate action metrics
		CorporateActions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_corporate_actions_total",
				Help: "Total number of corporate actions applied by type",
			},
			[]string{"type"},
		),

		// Account metrics
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_account_operations_total",
				Help: "Total account operations by type",
			},
			[]string{"operation"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lotledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lotledger_db_connections",
			Help: "Current number of database connections",
		}),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"endpoint"},
		),
	}
}
