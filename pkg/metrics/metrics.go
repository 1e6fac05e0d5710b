// Package metrics exposes Prometheus counters and gauges for the running
// server, served over HTTP by the bootstrap.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every counter/gauge the game engine publishes.
type Metrics struct {
	Logins          prometheus.Counter
	Logouts         prometheus.Counter
	ShotsFired      prometheus.Counter
	Hits            prometheus.Counter
	ChatMessages    prometheus.Counter
	ProtocolErrors  prometheus.Counter
	ConnectionsOpen prometheus.Gauge
	PlayersActive   prometheus.Gauge
	GridOccupied    prometheus.Gauge
}

// New registers every metric against its own registry so repeated calls in
// tests don't collide with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins:          f.NewCounter(prometheus.CounterOpts{Name: "mazewars_logins_total", Help: "Total successful player logins."}),
		Logouts:         f.NewCounter(prometheus.CounterOpts{Name: "mazewars_logouts_total", Help: "Total player logouts."}),
		ShotsFired:      f.NewCounter(prometheus.CounterOpts{Name: "mazewars_shots_fired_total", Help: "Total laser shots fired."}),
		Hits:            f.NewCounter(prometheus.CounterOpts{Name: "mazewars_hits_total", Help: "Total confirmed hits."}),
		ChatMessages:    f.NewCounter(prometheus.CounterOpts{Name: "mazewars_chat_messages_total", Help: "Total chat messages relayed."}),
		ProtocolErrors:  f.NewCounter(prometheus.CounterOpts{Name: "mazewars_protocol_errors_total", Help: "Total malformed frames rejected."}),
		ConnectionsOpen: f.NewGauge(prometheus.GaugeOpts{Name: "mazewars_connections_active", Help: "Currently open client connections."}),
		PlayersActive:   f.NewGauge(prometheus.GaugeOpts{Name: "mazewars_players_active", Help: "Currently logged-in players."}),
		GridOccupied:    f.NewGauge(prometheus.GaugeOpts{Name: "mazewars_grid_occupied_cells", Help: "Number of maze cells currently holding an avatar."}),
	}
}

// Handler returns the HTTP handler that serves the text exposition format
// for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
