package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderqueue_http_requests_total",
		Help: "Total HTTP requests served, by route and status code.",
	}, []string{"route", "code"})

	StatusUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderqueue_status_updates_total",
		Help: "Item status updates handled by the store, by result.",
	}, []string{"result"})
	Syncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderqueue_syncs_total",
		Help: "Total bulk overwrites accepted by the store.",
	})
	Resets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderqueue_resets_total",
		Help: "Total store resets to the seed.",
	})

	PendingChanges = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orderqueue_client_pending_changes",
		Help: "Status updates queued on the client awaiting replay.",
	})
	Replayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderqueue_client_replayed_total",
		Help: "Queued changes replayed against the store, by result (ok, dropped, failed).",
	}, []string{"result"})
	BulkPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderqueue_client_bulk_pushes_total",
		Help: "Periodic full-list pushes, by result.",
	}, []string{"result"})
	Online = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orderqueue_client_online",
		Help: "1 when both the network and the store health probe are up.",
	})
)

// RegisterServer registers the store-side collectors.
func RegisterServer(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests, StatusUpdates, Syncs, Resets)
}

// RegisterClient registers the sync-client collectors.
func RegisterClient(reg prometheus.Registerer) {
	reg.MustRegister(PendingChanges, Replayed, BulkPushes, Online)
}
