package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/nog/internal/infra/observability"
)

func TestMetrics(t *testing.T) {
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodDelete, "404")
	before := testutil.ToFloat64(counter)

	h := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/checks/x", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
