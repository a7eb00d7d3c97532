package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/servisdesk/servisdesk/internal/observability"
)

func counterValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	Expect(err).NotTo(HaveOccurred())
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

var _ = Describe("Metrics", func() {
	var (
		reg     *prometheus.Registry
		metrics *observability.Metrics
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
	})

	It("counts requests, errors and events", func() {
		metrics.RecordRequest("/tickets", http.MethodGet, http.StatusOK, 10*time.Millisecond)
		metrics.RecordRequest("/tickets", http.MethodGet, http.StatusOK, 20*time.Millisecond)
		metrics.RecordError("/tickets/:id", http.MethodGet, "NOT_FOUND")
		metrics.RecordEvent("ticket_created")

		Expect(counterValue(reg, "servisdesk_http_requests_total")).To(Equal(2.0))
		Expect(counterValue(reg, "servisdesk_http_errors_total")).To(Equal(1.0))
		Expect(counterValue(reg, "servisdesk_domain_events_total")).To(Equal(1.0))
	})

	It("tolerates a nil receiver", func() {
		var nilMetrics *observability.Metrics
		Expect(func() {
			nilMetrics.RecordRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
			nilMetrics.RecordEvent("x")
		}).NotTo(Panic())
	})

	It("serves the text exposition format", func() {
		metrics.RecordEvent("ticket_deleted")
		rec := httptest.NewRecorder()
		metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`servisdesk_domain_events_total{type="ticket_deleted"} 1`))
	})
})
