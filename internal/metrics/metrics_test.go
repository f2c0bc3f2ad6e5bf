package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlerServesRegisteredCollectors(t *testing.T) {
	ObserveFetch("seed", "ok", 120*time.Millisecond)
	ObserveCache("proxy", "hit")
	ObserveBatchItem("found")
	ObserveBudgetExceeded()
	WorkerStarted()
	WorkerStopped()
	ObserveRateLimitDelay(5 * time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "webscout_fetches_total")
	require.Contains(t, body, "webscout_cache_events_total")
	require.Contains(t, body, "webscout_batch_items_total")
	require.Contains(t, body, "webscout_crawl_budget_exceeded_total")
}
