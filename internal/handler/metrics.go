package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/blogpost/blogpost/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "blogpost_posts_created_total %d\n", snap.PostsCreated)
	writeMetric(w, "blogpost_posts_updated_total %d\n", snap.PostsUpdated)
	writeMetric(w, "blogpost_posts_deleted_total %d\n", snap.PostsDeleted)

	writeMetric(w, "blogpost_post_cache_hits_total %d\n", snap.PostCacheHits)
	writeMetric(w, "blogpost_post_cache_misses_total %d\n", snap.PostCacheMisses)

	writeMetric(w, "blogpost_rate_limited_total %d\n", snap.RateLimited)

	for _, status := range sortedKeys(snap.EventsPublished) {
		writeMetric(w, "blogpost_events_published_total{status=%q} %d\n", status, snap.EventsPublished[status])
	}

	for _, op := range sortedKeys(snap.Store) {
		timing := snap.Store[op]
		writeMetric(w, "blogpost_store_duration_seconds_count{op=%q} %d\n", op, timing.Count)
		writeMetric(w, "blogpost_store_duration_seconds_sum{op=%q} %.6f\n", op, float64(timing.TotalNs)/1e9)
		writeMetric(w, "blogpost_store_errors_total{op=%q} %d\n", op, timing.Errors)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
