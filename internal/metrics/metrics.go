package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Token Metrics
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otpgw_tokens_issued_total",
		Help: "The total number of tokens written to the store.",
	}, []string{"kind"})
	TokenVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otpgw_token_verifications_total",
		Help: "Token verification attempts by kind and result.",
	}, []string{"kind", "result"})

	// Gate Metrics
	GateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otpgw_gate_rejections_total",
		Help: "Protected requests rejected before reaching the provider.",
	}, []string{"reason"})
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otpgw_sessions_created_total",
		Help: "The total number of session cookies issued.",
	})

	// Reservation Metrics
	Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otpgw_reservations_total",
		Help: "Reservation lifecycle events.",
	}, []string{"event"})

	// Provider Metrics
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otpgw_provider_calls_total",
		Help: "Outbound provider calls by action and outcome.",
	}, []string{"action", "outcome"})
)
