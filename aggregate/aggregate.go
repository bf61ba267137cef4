// Package aggregate merges per-partition fan-out results into one coherent
// answer while preserving correct attribution of each finding to its
// originating partition.
package aggregate

import (
	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/logging"
)

// Options configure an Aggregator.
type Options struct {
	Logger logging.Logger
}

// Aggregator merges fan-out sub-results. It is stateless and safe for
// concurrent use.
type Aggregator struct {
	logger logging.Logger
}

// New creates an aggregator with optional overrides.
func New(optFns ...func(o *Options)) *Aggregator {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Aggregator{logger: opts.Logger}
}

// Aggregate merges per-partition results into one AggregatedAnswer.
//
// Failed sub-results are dropped (and logged); only if every sub-result
// failed does it fail with *core.AllPartitionsFailedError. Each surviving
// finding's label is read from the result's own metadata, attached at
// production time — never re-derived from position in an external ordered
// list, which would shift once failed partitions are filtered. Output
// ordering is deterministic: the original request order of the partitions
// that succeeded, not completion time.
func (a *Aggregator) Aggregate(results []core.ToolResult, originalQuery string) (core.AggregatedAnswer, error) {
	var answer core.AggregatedAnswer

	dropped := 0

	for _, r := range results {
		if !r.Success {
			dropped++

			a.logger.Warn("aggregate.partition.dropped",
				"source_id", r.SourceID,
				"source_label", r.SourceLabel,
				"error", r.Error,
			)

			continue
		}

		answer.PerSource = append(answer.PerSource, core.SourceAnswer{
			SourceID:    r.SourceID,
			SourceLabel: r.SourceLabel,
			Answer:      r.Data,
			Confidence:  r.Confidence,
		})
	}

	if len(answer.PerSource) == 0 && len(results) > 0 {
		return core.AggregatedAnswer{}, &core.AllPartitionsFailedError{Total: len(results)}
	}

	a.logger.Info("aggregate.complete",
		"query", originalQuery,
		"sources", len(answer.PerSource),
		"dropped", dropped,
	)

	return answer, nil
}
