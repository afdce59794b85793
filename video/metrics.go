package video

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifcam_motion_detections_total",
		Help: "Motion detection events, by source locality.",
	}, []string{"source"})

	metricRecordingsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifcam_recordings_started_total",
		Help: "Recording sessions started.",
	})

	metricRecordingsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifcam_recordings_rejected_total",
		Help: "Recording starts rejected because one was already in progress.",
	})

	metricEncodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifcam_encode_failures_total",
		Help: "Clip encodes that failed to produce an artifact.",
	})

	metricArtifacts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifcam_artifacts_delivered_total",
		Help: "Artifacts delivered to the sink.",
	})

	metricEncodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gifcam_encode_duration_seconds",
		Help:    "Wall time of clip encodes.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)
