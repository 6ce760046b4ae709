package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MaterialsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_materials_generated_total",
			Help: "Total number of material artifacts generated",
		},
		[]string{"kind"},
	)

	TemplateFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_template_failures_total",
			Help: "Total number of templates abandoned during generation",
		},
		[]string{"step"},
	)

	TemplateFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_template_fallbacks_total",
			Help: "Total number of presentation generations that used a fallback path",
		},
		[]string{"path"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cfp_materials_generation_duration_seconds",
			Help:    "Duration of a materials generation request in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MirrorJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_template_mirror_jobs_total",
			Help: "Total number of template mirror jobs by outcome",
		},
		[]string{"status"},
	)

	SignInsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_signins_submitted_total",
			Help: "Total number of public sign-in submissions by outcome",
		},
		[]string{"outcome"},
	)
)
