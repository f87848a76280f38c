package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// telemetryCounters tracks broadcast and protocol health. The atomic fields
// feed the /diagnostics JSON snapshot; the Prometheus collectors feed
// /metrics. Both are updated together so the two views never disagree on
// direction.
type telemetryCounters struct {
	bytesSent          atomic.Uint64
	entitiesSent       atomic.Uint64
	tickDurationMillis atomic.Int64
	claimsAccepted     atomic.Uint64
	claimsRejected     atomic.Uint64
	projectilesSpawned atomic.Uint64
	projectilesExpired atomic.Uint64
	commandsRejected   atomic.Uint64

	registry           *prometheus.Registry
	promBroadcastBytes prometheus.Counter
	promTickDuration   prometheus.Gauge
	promClaims         *prometheus.CounterVec
	promClaimRejects   *prometheus.CounterVec
	promProjectiles    *prometheus.CounterVec
	promCommandRejects *prometheus.CounterVec
}

// telemetrySnapshot is the JSON shape served by /diagnostics.
type telemetrySnapshot struct {
	BytesSent          uint64 `json:"bytesSent"`
	EntitiesSent       uint64 `json:"entitiesSent"`
	TickDuration       int64  `json:"tickDurationMillis"`
	ClaimsAccepted     uint64 `json:"claimsAccepted"`
	ClaimsRejected     uint64 `json:"claimsRejected"`
	ProjectilesSpawned uint64 `json:"projectilesSpawned"`
	ProjectilesExpired uint64 `json:"projectilesExpired"`
	CommandsRejected   uint64 `json:"commandsRejected"`
}

func newTelemetryCounters() *telemetryCounters {
	registry := prometheus.NewRegistry()
	t := &telemetryCounters{
		registry: registry,
		promBroadcastBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broadside_broadcast_bytes_total",
			Help: "Bytes written to snapshot and event broadcasts.",
		}),
		promTickDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "broadside_tick_duration_millis",
			Help: "Duration of the most recent simulation tick.",
		}),
		promClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadside_hit_claims_total",
			Help: "Hit claims processed, by outcome.",
		}, []string{"outcome"}),
		promClaimRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadside_hit_claim_rejections_total",
			Help: "Rejected hit claims, by reason.",
		}, []string{"reason"}),
		promProjectiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadside_projectiles_total",
			Help: "Projectiles spawned and expired.",
		}, []string{"event"}),
		promCommandRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadside_command_rejections_total",
			Help: "Commands that never reached a ship mailbox, by reason.",
		}, []string{"reason"}),
	}
	registry.MustRegister(
		t.promBroadcastBytes,
		t.promTickDuration,
		t.promClaims,
		t.promClaimRejects,
		t.promProjectiles,
		t.promCommandRejects,
	)
	return t
}

// MetricsHandler serves the Prometheus exposition format.
func (t *telemetryCounters) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *telemetryCounters) RecordBroadcast(bytes, entities int) {
	if bytes < 0 {
		bytes = 0
	}
	if entities < 0 {
		entities = 0
	}
	t.bytesSent.Add(uint64(bytes))
	t.entitiesSent.Add(uint64(entities))
	t.promBroadcastBytes.Add(float64(bytes))
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	t.promTickDuration.Set(float64(millis))
}

func (t *telemetryCounters) RecordClaimAccepted() {
	t.claimsAccepted.Add(1)
	t.promClaims.WithLabelValues("accepted").Inc()
}

func (t *telemetryCounters) RecordClaimRejected(reason string) {
	t.claimsRejected.Add(1)
	t.promClaims.WithLabelValues("rejected").Inc()
	t.promClaimRejects.WithLabelValues(reason).Inc()
}

func (t *telemetryCounters) RecordProjectileSpawned() {
	t.projectilesSpawned.Add(1)
	t.promProjectiles.WithLabelValues("spawned").Inc()
}

func (t *telemetryCounters) RecordProjectilesExpired(count int) {
	if count <= 0 {
		return
	}
	t.projectilesExpired.Add(uint64(count))
	t.promProjectiles.WithLabelValues("expired").Add(float64(count))
}

func (t *telemetryCounters) RecordCommandRejected(reason string) {
	t.commandsRejected.Add(1)
	t.promCommandRejects.WithLabelValues(reason).Inc()
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:          t.bytesSent.Load(),
		EntitiesSent:       t.entitiesSent.Load(),
		TickDuration:       t.tickDurationMillis.Load(),
		ClaimsAccepted:     t.claimsAccepted.Load(),
		ClaimsRejected:     t.claimsRejected.Load(),
		ProjectilesSpawned: t.projectilesSpawned.Load(),
		ProjectilesExpired: t.projectilesExpired.Load(),
		CommandsRejected:   t.commandsRejected.Load(),
	}
}
