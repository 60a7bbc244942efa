package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshdock_dispatches_created_total",
		Help: "Total number of dispatches created, by submission channel.",
	},
		[]string{"channel"},
	)

	DispatchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshdock_dispatch_events_total",
		Help: "Total number of dispatch audit events appended, by event type.",
	},
		[]string{"event"},
	)

	AdviceDocumentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freshdock_advice_documents_generated_total",
		Help: "Total number of delivery-advice documents rendered.",
	})

	IntakeRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshdock_intake_rejections_total",
		Help: "Public intake submissions refused, by reason.",
	},
		[]string{"reason"},
	)

	SideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshdock_side_effect_failures_total",
		Help: "Best-effort side effects that failed, by kind.",
	},
		[]string{"kind"},
	)

	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freshdock_notification_queue_depth",
		Help: "Messages waiting in the notification queue.",
	})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freshdock_event_stream_subscribers",
		Help: "Open dispatch event stream subscriptions.",
	})
)
