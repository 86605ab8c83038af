// Package metrics exports vesting manager operational counters and
// gauges via Prometheus client_golang, served over its own HTTP port
// independent of the query/admin API.
package metrics

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

// Exporter owns the metrics registry and the HTTP server that serves
// /metrics for Prometheus to scrape.
type Exporter struct {
	server *http.Server

	SchedulesCreated prometheus.Counter
	SchedulesClaimed prometheus.Counter
	SchedulesRevoked prometheus.Counter
	AdminWithdrawals prometheus.Counter
	ClaimErrors      *prometheus.CounterVec
	Reserved         prometheus.Gauge
}

// NewExporter builds an Exporter bound to port, with all metrics
// registered against a fresh registry (not the global default, so
// multiple Exporters in tests don't collide).
func NewExporter(port int) *Exporter {
	reg := prometheus.NewRegistry()

	e := &Exporter{
		SchedulesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesting_schedules_created_total",
			Help: "Total number of vesting schedules created.",
		}),
		SchedulesClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesting_claims_total",
			Help: "Total number of successful claim operations.",
		}),
		SchedulesRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesting_revocations_total",
			Help: "Total number of revoke operations.",
		}),
		AdminWithdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesting_admin_withdrawals_total",
			Help: "Total number of admin withdrawal operations.",
		}),
		ClaimErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesting_operation_errors_total",
			Help: "Total number of failed operations, labeled by error kind.",
		}, []string{"kind"}),
		Reserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vesting_reserved_balance",
			Help: "Current amount reserved for outstanding vesting schedules.",
		}),
	}

	reg.MustRegister(e.SchedulesCreated, e.SchedulesClaimed, e.SchedulesRevoked,
		e.AdminWithdrawals, e.ClaimErrors, e.Reserved)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	return e
}

// Start begins serving /metrics in the background. It returns
// immediately; use Shutdown to stop it.
func (e *Exporter) Start() {
	go func() {
		_ = e.server.ListenAndServe()
	}()
}

// Shutdown gracefully stops the metrics HTTP server.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}

// IncClaimError bumps the failed-operation counter for kind. Called
// from pkg/api's writeError for every error it reports (errors without
// a vesting.ErrorKind are counted as "internal"), since the event bus
// below only ever sees successful operations.
func (e *Exporter) IncClaimError(kind string) {
	e.ClaimErrors.WithLabelValues(kind).Inc()
}

// EventSink returns a vesting.EventBus that drives the exporter's
// counters and gauge off the manager's own event stream, so /metrics
// reflects real operation counts instead of sitting at zero. reserved
// is consulted after every event to refresh the Reserved gauge, since
// no single event payload carries the post-operation reserved balance.
func (e *Exporter) EventSink(reserved func() (*big.Int, error)) vesting.EventBus {
	return eventSink{exporter: e, reserved: reserved}
}

type eventSink struct {
	exporter *Exporter
	reserved func() (*big.Int, error)
}

func (s eventSink) Publish(ev vesting.Event) {
	switch ev.(type) {
	case vesting.VestingCreatedEvent:
		s.exporter.SchedulesCreated.Inc()
	case vesting.ClaimedEvent:
		s.exporter.SchedulesClaimed.Inc()
	case vesting.VestingRevokedEvent:
		s.exporter.SchedulesRevoked.Inc()
	case vesting.AdminWithdrawnEvent, vesting.AdminWithdrawnOtherEvent:
		s.exporter.AdminWithdrawals.Inc()
	}

	if v, err := s.reserved(); err == nil {
		f, _ := new(big.Float).SetInt(v).Float64()
		s.exporter.Reserved.Set(f)
	}
}
