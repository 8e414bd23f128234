package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	StationsConnected  prometheus.Gauge
	ObserversConnected prometheus.Gauge
	MessagesTotal      *prometheus.CounterVec
	MalformedFrames    prometheus.Counter
	BroadcastFailures  prometheus.Counter
}

var (
	global *Metrics
	once   sync.Once
)

// Init registers the collectors exactly once and returns the shared set.
func Init() *Metrics {
	once.Do(func() {
		global = &Metrics{
			StationsConnected: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "voltgate_stations_connected",
				Help: "Currently connected charge points",
			}),
			ObserversConnected: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "voltgate_observers_connected",
				Help: "Currently connected dashboard observers",
			}),
			MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "voltgate_ocpp_messages_total",
				Help: "Routed OCPP CALL frames by action and outcome",
			}, []string{"action", "outcome"}),
			MalformedFrames: promauto.NewCounter(prometheus.CounterOpts{
				Name: "voltgate_malformed_frames_total",
				Help: "Inbound payloads dropped as malformed",
			}),
			BroadcastFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "voltgate_broadcast_failures_total",
				Help: "Observer snapshot pushes that failed to send",
			}),
		}
	})
	return global
}
