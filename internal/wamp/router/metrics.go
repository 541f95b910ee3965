package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the router-side counters/gauges named in
// SPEC_FULL.md §4.10 "Metrics surface", wired the way the teacher's
// pkg/metrics package registers Prometheus collectors.
var (
	SessionsEstablished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battlerealm_router_sessions_established_total",
			Help: "Total number of sessions that completed HELLO/WELCOME, by realm.",
		},
		[]string{"realm"},
	)

	SubscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "battlerealm_router_subscriptions_active",
			Help: "Number of currently active subscriptions, by realm.",
		},
		[]string{"realm"},
	)

	ProceduresActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "battlerealm_router_procedures_active",
			Help: "Number of currently active procedure registrations, by realm.",
		},
		[]string{"realm"},
	)

	PublicationsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battlerealm_router_publications_routed_total",
			Help: "Total number of PUBLISH messages routed to at least one subscriber, by realm.",
		},
		[]string{"realm"},
	)
)
