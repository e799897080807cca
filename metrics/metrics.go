package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TranscodeSessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcode_sessions_started_total",
		Help: "Video transcode sessions launched, by target quality",
	}, []string{"quality"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcode_sessions_active",
		Help: "Video transcode sessions currently registered",
	})

	AudioJobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcode_audio_jobs_started_total",
		Help: "Audio transcode jobs launched",
	})

	SessionsReplaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcode_sessions_replaced_total",
		Help: "Sessions cancelled because the client switched quality or file",
	})

	IdentifyDurationSec = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "identify_duration_seconds",
		Help:    "Time taken to probe and identify a media file",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	HTTPRequestDurationSec = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name: "http_request_duration_seconds",
		Help: "Latency of handled HTTP requests, by status code",
	}, []string{"status_code"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
