package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/offers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/offers/{id}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/offers/17", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/offers/{id}", "418")))
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(cacheLookups.WithLabelValues("offer_detail", "hit"))
	RecordCacheLookup("offer_detail", true)
	assert.Equal(t, before+1, testutil.ToFloat64(cacheLookups.WithLabelValues("offer_detail", "hit")))

	before = testutil.ToFloat64(logins.WithLabelValues("failure"))
	RecordLogin(false)
	assert.Equal(t, before+1, testutil.ToFloat64(logins.WithLabelValues("failure")))

	RecordEvent(EventOrderCreated)
	RecordRegistration()
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordEvent(EventOfferCreated)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "coderr_marketplace_events_total"))
}
