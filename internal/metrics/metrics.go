// Package metrics holds the domain counters of the tour builder, shared by
// the core services and the view workers. HTTP request metrics come from
// echoprometheus in the router.
//
// All metrics register with the default registry through promauto at package
// initialisation, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tours"

// ── Tour metrics ──────────────────────────────────────────────────────────────

// ToursCreatedTotal counts newly created tours.
// Label:
//   - status: initial status, "draft" or "published"
var ToursCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of tours created, by initial status.",
	},
	[]string{"status"},
)

// ── View metrics ──────────────────────────────────────────────────────────────

// ViewsRecordedTotal counts view recording decisions.
// Label:
//   - result: "counted", "deduplicated", "dropped" or "failed"
var ViewsRecordedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "views_recorded_total",
		Help:      "Total number of public playback views processed, by result.",
	},
	[]string{"result"},
)

// ViewsQueueDepth tracks the number of view events waiting in each worker channel.
var ViewsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "views_queue_depth",
		Help:      "Current number of view events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Upload metrics ────────────────────────────────────────────────────────────

// UploadsTotal counts upload attempts.
// Labels:
//   - kind: "image", "video" or "unknown"
//   - outcome: "stored", "rejected" or "failed"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of media uploads, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// UploadBytesTotal sums the bytes of stored uploads.
var UploadBytesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_bytes_total",
		Help:      "Total bytes of stored media uploads, by kind.",
	},
	[]string{"kind"},
)
