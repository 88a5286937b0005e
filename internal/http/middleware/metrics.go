package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	DepositsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_deposits_recorded_total",
			Help: "Deposits recorded into the active cycle",
		},
		[]string{"type"},
	)
	WithdrawalsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_withdrawals_decided_total",
			Help: "Admin decisions on withdrawal requests",
		},
		[]string{"action"},
	)
	CyclesSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_cycles_settled_total",
			Help: "Fund cycles closed by settlement",
		},
	)
)

func init() {
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(DepositsRecorded)
	prometheus.MustRegister(WithdrawalsDecided)
	prometheus.MustRegister(CyclesSettled)
}
