// Package metrics defines and registers all custom Prometheus metrics of the
// library API. It is the single source of truth for metric names, labels and
// help strings; promauto registers them with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// ── Lending metrics ──────────────────────────────────────────────────────────

// BorrowsTotal counts loans opened.
var BorrowsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "borrows_total",
		Help:      "Total number of borrow records created.",
	},
)

// BorrowRejectionsTotal counts borrow attempts that were refused.
// Label:
//   - reason: "unavailable", "book_not_found", "user_not_found", "forbidden" or "error"
var BorrowRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "borrow_rejections_total",
		Help:      "Total number of refused borrow attempts, by reason.",
	},
	[]string{"reason"},
)

// ReturnsTotal counts loans closed.
// Label:
//   - late: "true" when the copy came back after its due date
var ReturnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "returns_total",
		Help:      "Total number of borrow records returned.",
	},
	[]string{"late"},
)

// FinesAssessedTotal sums the fines finalized at return, in currency units.
var FinesAssessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fines_assessed_total",
		Help:      "Sum of all fines finalized at return time.",
	},
)

// ── Store metrics ────────────────────────────────────────────────────────────

// StoreConflictsTotal counts optimistic transaction conflicts that forced a retry.
// Label:
//   - backend: "redis", "mongo", "sqlite" or "memory"
var StoreConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_conflicts_total",
		Help:      "Total number of catalog store transaction conflicts.",
	},
	[]string{"backend"},
)

// ── Alert metrics ────────────────────────────────────────────────────────────

// LowStockAlertsTotal counts low-stock alerts raised (after de-duplication).
var LowStockAlertsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "low_stock_alerts_total",
		Help:      "Total number of low-stock alerts raised.",
	},
)

// AlertDedupTotal counts de-duplication decisions.
// Label:
//   - result: "hit" (already alerted today, skipped) or "miss" (new alert)
var AlertDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_dedup_total",
		Help:      "Total number of alert de-duplication checks, by result.",
	},
	[]string{"result"},
)

// InventoryEventsDroppedTotal counts events discarded because a worker queue was full.
var InventoryEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_events_dropped_total",
		Help:      "Total number of inventory events dropped on a full worker queue.",
	},
)

// InventoryQueueDepth tracks the events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var InventoryQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inventory_queue_depth",
		Help:      "Current number of inventory events pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// InventoryProcessingDuration measures how long one inventory event takes.
// Label:
//   - result: "ok" or "error"
var InventoryProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inventory_processing_duration_seconds",
		Help:      "Duration of inventory event processing.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
