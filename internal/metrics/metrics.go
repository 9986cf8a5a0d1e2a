// Package metrics holds the process-wide Prometheus collectors. Label values
// are always drawn from small fixed sets; never label by lobby or player.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lobbiesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buckshot_lobbies_active",
		Help: "Lobbies currently registered",
	})

	gamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buckshot_games_started_total",
		Help: "Games started across all lobbies",
	})

	gamesEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buckshot_games_ended_total",
		Help: "Games that reached a winner or ended with none",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buckshot_commands_total",
		Help: "Commands applied to lobbies",
	}, []string{"command", "outcome"}) // outcome: ok, rejected, invariant

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buckshot_rate_limited_total",
		Help: "HTTP requests rejected by the per-IP limiter",
	})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buckshot_websocket_connections_active",
		Help: "Open websocket connections",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buckshot_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"}) // route is the chi pattern, not the raw path
)

const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeInvariant = "invariant"
)

func SetLobbies(n int) { lobbiesActive.Set(float64(n)) }

func GameStarted() { gamesStarted.Inc() }

func GameEnded() { gamesEnded.Inc() }

// Command counts one applied command. outcome is one of the Outcome constants.
func Command(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

func RateLimited() { rateLimited.Inc() }

func WSConnected() { wsConnections.Inc() }

func WSDisconnected() { wsConnections.Dec() }

func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
