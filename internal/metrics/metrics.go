package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "nexus_console"
)

var (
	// Authentication Metrics
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Count of sign-in attempts by identity provider and outcome.",
	}, []string{"provider", "outcome"})

	TokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Count of ID token refreshes by outcome.",
	}, []string{"outcome"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of browser sessions held in the session registry.",
	})

	RoleClaimsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_claims_rejected_total",
		Help:      "Role claim tokens dropped because they are outside the known role set.",
	}, []string{"reason"})

	// Routing Metrics
	RouteGuardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_guard_decisions_total",
		Help:      "Route middleware outcomes per registry route.",
	}, []string{"route", "outcome"})

	// REST Client Metrics
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Count of Nexus API requests by method, endpoint template and status.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Latency of Nexus API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	RoleReconcileStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_reconcile_steps_total",
		Help:      "Individual add/remove calls issued while reconciling a user's roles.",
	}, []string{"op", "status"})
)
