package monitoring

import (
	"time"

	"remoteeye/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	devicesOnline     prometheus.Gauge
	controllersOnline prometheus.Gauge

	// Counters
	connectionsTotal   *prometheus.CounterVec
	supersessionsTotal prometheus.Counter
	mediaRelayedTotal  *prometheus.CounterVec
	mediaDroppedTotal  *prometheus.CounterVec
	mediaRelayedBytes  prometheus.Counter
	commandsTotal      *prometheus.CounterVec
	malformedTotal     prometheus.Counter

	// Histograms
	commandDeliveryLatency prometheus.Histogram
	sessionDuration        prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		devicesOnline: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "remoteeye_devices_online",
			Help: "Number of devices with a live relay session",
		}),

		controllersOnline: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "remoteeye_controllers_online",
			Help: "Number of controllers with a live relay session",
		}),

		connectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remoteeye_connections_total",
			Help: "Total relay sessions admitted, by role",
		}, []string{"role"}),

		supersessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remoteeye_device_supersessions_total",
			Help: "Total device sessions closed because a newer one took over",
		}),

		mediaRelayedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remoteeye_media_relayed_total",
			Help: "Media units fanned out to controllers, by kind",
		}, []string{"kind"}),

		mediaDroppedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remoteeye_media_dropped_total",
			Help: "Media units evicted from slow controller buffers, by kind",
		}, []string{"kind"}),

		mediaRelayedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remoteeye_media_relayed_bytes_total",
			Help: "Total media payload bytes relayed",
		}),

		commandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remoteeye_commands_total",
			Help: "Command lifecycle events, by status",
		}, []string{"status"}),

		malformedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remoteeye_malformed_messages_total",
			Help: "Messages dropped because they failed envelope validation",
		}),

		commandDeliveryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "remoteeye_command_delivery_latency_seconds",
			Help:    "Time from command creation to transport delivery",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),

		sessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "remoteeye_session_duration_seconds",
			Help:    "Lifetime of relay sessions",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

func (p *PrometheusCollector) RecordConnected(role domain.Role) {
	p.connectionsTotal.WithLabelValues(string(role)).Inc()
	if role == domain.RoleDevice {
		p.devicesOnline.Inc()
	} else {
		p.controllersOnline.Inc()
	}
}

func (p *PrometheusCollector) RecordDisconnected(role domain.Role, connected time.Duration) {
	if role == domain.RoleDevice {
		p.devicesOnline.Dec()
	} else {
		p.controllersOnline.Dec()
	}
	p.sessionDuration.Observe(connected.Seconds())
}

func (p *PrometheusCollector) RecordSupersession() {
	p.supersessionsTotal.Inc()
}

func (p *PrometheusCollector) RecordMediaRelayed(kind domain.MediaKind, bytes int, fanout int) {
	p.mediaRelayedTotal.WithLabelValues(string(kind)).Add(float64(fanout))
	p.mediaRelayedBytes.Add(float64(bytes * fanout))
}

func (p *PrometheusCollector) RecordMediaDropped(kind domain.MediaKind, count uint64) {
	p.mediaDroppedTotal.WithLabelValues(string(kind)).Add(float64(count))
}

func (p *PrometheusCollector) RecordCommandStatus(status string) {
	p.commandsTotal.WithLabelValues(status).Inc()
}

func (p *PrometheusCollector) RecordCommandDelivery(createdToDelivered time.Duration) {
	p.commandDeliveryLatency.Observe(createdToDelivered.Seconds())
}

func (p *PrometheusCollector) RecordMalformedMessage() {
	p.malformedTotal.Inc()
}
