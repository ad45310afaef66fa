package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session results
const (
	ResultOK            = "ok"
	ResultResourceError = "resource_error"
	ResultLaunchError   = "launch_error"
)

// Flow directions
const (
	DirectionOutput = "output"
	DirectionInput  = "input"
)

// Metrics holds the Prometheus collectors for terminal sessions.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	Triggers        *prometheus.CounterVec
	TeardownSeconds prometheus.Histogram
	Bytes           *prometheus.CounterVec
	ForceKills      prometheus.Counter
	ControlFrames   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "terminal_sessions_active",
			Help: "Number of terminal sessions that have not reached Closed",
		}),
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terminal_sessions_total",
				Help: "Total terminal sessions by startup result",
			},
			[]string{"result"},
		),
		Triggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terminal_termination_trigger_total",
				Help: "Termination triggers that won the transition to Terminating",
			},
			[]string{"trigger"},
		),
		TeardownSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "terminal_teardown_seconds",
			Help:    "Time spent releasing session resources",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		Bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terminal_bytes_total",
				Help: "Bytes relayed between the terminal and the remote channel",
			},
			[]string{"direction"},
		),
		ForceKills: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminal_force_kills_total",
			Help: "Shell process groups that outlived the grace period and were killed",
		}),
		ControlFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terminal_control_frames_total",
				Help: "Inbound control frames by outcome",
			},
			[]string{"outcome"},
		),
	}
}
