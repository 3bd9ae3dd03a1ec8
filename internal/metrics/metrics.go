package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Lookups counts public record searches by outcome state.
	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "preboard",
		Name:      "lookups_total",
		Help:      "Student lookups by outcome.",
	}, []string{"outcome"})

	// Submissions counts self-service submissions by outcome.
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "preboard",
		Name:      "submissions_total",
		Help:      "Pre-board submissions by outcome.",
	}, []string{"outcome"})

	AdmitCards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "preboard",
		Name:      "admit_cards_rendered_total",
		Help:      "Admit cards rendered, by requesting surface.",
	}, []string{"surface"})

	RoleChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "preboard",
		Name:      "role_checks_total",
		Help:      "Admin role checks by result.",
	}, []string{"result"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "preboard",
		Name:      "submission_sessions",
		Help:      "Open self-service sessions.",
	})
)

func init() {
	prometheus.MustRegister(Lookups, Submissions, AdmitCards, RoleChecks, ActiveSessions)
}
