package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CandidatesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundmatch_candidates_generated_total",
			Help: "Total number of match candidates produced by generation",
		},
		[]string{"mode"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groundmatch_generation_duration_seconds",
			Help:    "Duration of match generation for one company in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	MatchesApproved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundmatch_matches_approved_total",
			Help: "Total number of matches approved",
		},
		[]string{"source"},
	)

	MatchesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundmatch_matches_deleted_total",
			Help: "Total number of matches deleted or unapproved",
		},
	)

	DuplicateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundmatch_duplicate_conflicts_total",
			Help: "Inserts skipped because the client/ground pair already existed",
		},
	)

	AccessDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundmatch_access_denied_total",
			Help: "Operations rejected because they touched another company's data",
		},
		[]string{"operation"},
	)

	RegenerationJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundmatch_regeneration_jobs_total",
			Help: "Background regeneration jobs by outcome",
		},
		[]string{"result"},
	)

	RegenerationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundmatch_regeneration_queue_depth",
			Help: "Number of regeneration jobs waiting in the queue",
		},
	)
)
