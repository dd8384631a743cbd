// Package metrics exposes prometheus instrumentation for the chat core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linkchat_live_connections",
		Help: "Currently registered websocket connections.",
	})

	FramesIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkchat_frames_in_total",
		Help: "Inbound frames by type, including dropped ones.",
	}, []string{"type"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkchat_frames_dropped_total",
		Help: "Inbound frames silently dropped, by reason.",
	}, []string{"reason"})

	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkchat_messages_persisted_total",
		Help: "Messages appended to the durable store.",
	})

	DeadHandleEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkchat_dead_handle_evictions_total",
		Help: "Connections evicted after a failed write.",
	})
)
