// Package metrics exposes Prometheus counters for the registration flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devcon_registrations_total",
		Help: "Number of participants registered.",
	})

	TeamsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devcon_teams_created_total",
		Help: "Number of teams created.",
	})

	PaymentsVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devcon_payments_verified_total",
		Help: "Number of payments verified, by method.",
	}, []string{"method"})

	PaymentsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devcon_payments_rejected_total",
		Help: "Number of payments rejected.",
	})

	CheckInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devcon_checkins_total",
		Help: "Number of event check-ins recorded.",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devcon_notifications_total",
		Help: "Email notification attempts, by kind and outcome.",
	}, []string{"kind", "outcome"})
)
