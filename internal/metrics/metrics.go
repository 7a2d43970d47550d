// Package metrics define las métricas Prometheus de ambos servicios. Vive aparte del
// paquete http para que store/services puedan instrumentar sin ciclos de import.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_http_requests_total",
		Help: "Requests HTTP procesadas",
	}, []string{"service", "method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codeflow_http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method", "route"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "codeflow_http_inflight_requests",
		Help: "Requests en vuelo",
	}, []string{"service"})

	// Authorization server
	CodesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_authorization_codes_issued_total",
		Help: "Authorization codes emitidos",
	}, []string{"client_id"})

	// result: ok | invalid_client | invalid_grant | invalid_request | unsupported_grant_type | server_error
	TokenRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_token_requests_total",
		Help: "Requests al token endpoint por resultado",
	}, []string{"result"})

	// reason: not_found | expired | already_consumed | client_mismatch | redirect_mismatch
	RedeemFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_code_redeem_failures_total",
		Help: "Redenciones de code rechazadas por el store (no expuesto al client)",
	}, []string{"reason"})

	UserInfoRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_userinfo_requests_total",
		Help: "Requests a userinfo por resultado",
	}, []string{"result"})

	// Client
	FlowEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_client_flow_events_total",
		Help: "Eventos del flow del client por tipo",
	}, []string{"event"})

	UpstreamCalls = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codeflow_client_upstream_seconds",
		Help:    "Latencia de llamadas del client al authserver",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"endpoint", "outcome"})
)

var (
	registerOnce sync.Once
	registerErr  error
)

// Register registra todas las métricas una sola vez. reg nil usa el default.
func Register(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{
			HTTPRequests, HTTPDuration, HTTPInflight,
			CodesIssued, TokenRequests, RedeemFailures, UserInfoRequests,
			FlowEvents, UpstreamCalls,
		} {
			if err := registerCollector(reg, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

// Handler expone /metrics sobre el gatherer default.
func Handler() http.Handler {
	return promhttp.Handler()
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}
