package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts pack/unpack invocations per profile and
	// outcome. The verify-pack commands are not counted.
	OperationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Total number of pack/unpack operations",
		},
		[]string{"operation", "profile", "outcome"}, // pack/unpack, rs/stream/fountain, ok/error
	)

	// OperationDuration tracks wall-clock duration of pack/unpack
	// operations.
	OperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "operation_duration_seconds",
			Help:      "Duration of pack/unpack operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"operation", "profile"},
	)

	// ShardsReconstructed counts how many shards Reed-Solomon had to
	// rebuild per reconstruct call (0 when all shards were present).
	ShardsReconstructed = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "erasure",
			Name:      "shards_reconstructed",
			Help:      "Number of shards rebuilt by a single reconstruct call",
			Buckets:   prometheus.LinearBuckets(0, 1, 16),
		},
	)

	// FountainPacketsAccepted counts packets a fountain decoder accepted
	// versus discarded as malformed.
	FountainPacketsAccepted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fountain",
			Name:      "packets_total",
			Help:      "Total fountain packets processed by outcome",
		},
		[]string{"outcome"}, // accepted/discarded
	)

	// PoDVerifications counts pod-verify results per shard outcome.
	PoDVerifications = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pod",
			Name:      "verifications_total",
			Help:      "Total PoD verifications by result",
		},
		[]string{"result"}, // ok/bad/missing
	)
)
