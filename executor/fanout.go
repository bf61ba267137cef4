package executor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/tool"
)

// fanOut distributes one logical call over the tool's independent partitions
// and runs each sub-task concurrently. One partition's failure never aborts
// its siblings; the combined result degrades to "N of M succeeded".
//
// Every sub-result, success or failure, has its SourceID and SourceLabel
// attached here, at production time. Reconstructing attribution from the
// surviving result list's position after failed partitions are filtered would
// silently shift indices and misattribute findings.
func (e *Executor) fanOut(toolCtx *core.ToolContext, pt tool.PartitionedTool, args map[string]any) (core.ToolResult, error) {
	name := pt.Name()

	if err := e.registry.ValidateArgs(name, args); err != nil {
		return failedFromError(name, err), nil
	}

	partitions, err := pt.Partitions(toolCtx, args)
	if err != nil {
		return core.FailedResult(
			&core.ToolExecutionError{Tool: name, Err: err},
			fmt.Sprintf("tool %q could not enumerate its partitions (%v)", name, err),
		), nil
	}

	if len(partitions) == 0 {
		return core.FailedResult(
			errors.New("no partitions to distribute over"),
			fmt.Sprintf("tool %q found nothing to distribute over; narrow or change the request", name),
		), nil
	}

	n := len(partitions)

	maxPar := e.maxParallel
	if maxPar < 1 || maxPar > n {
		maxPar = n
	}

	sub := make([]core.ToolResult, n)

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)
	start := time.Now()

	for i := range partitions {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, p core.Partition) {
			defer wg.Done()
			defer func() { <-sem }()

			pctx := toolCtx.ForPartition(p)

			var res core.ToolResult
			if err := pctx.Context().Err(); err != nil {
				res = core.FailedResult(err, "")
			} else {
				res = e.runGuarded(pctx, name, func(tctx *core.ToolContext) (core.ToolResult, error) {
					return pt.CallPartition(tctx, args)
				})
			}

			// Attribution is stamped at production time, unconditionally.
			res.SourceID = p.ID
			res.SourceLabel = p.Label

			if !res.Success {
				e.logger.Warn("executor.fanout.partition_failed", "tool", name, "source_id", p.ID, "source_label", p.Label, "error", res.Error)
			}

			sub[idx] = res
		}(i, partitions[i])
	}

	wg.Wait()

	succeeded := 0
	allComplete := true
	confidence := 0.0

	for _, r := range sub {
		if !r.Success {
			continue
		}

		succeeded++
		confidence += r.Confidence

		if r.NextAction != core.NextComplete {
			allComplete = false
		}
	}

	e.logger.Info("executor.fanout.complete",
		"tool", name,
		"partitions", n,
		"succeeded", succeeded,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	combined := core.ToolResult{
		Success:               succeeded > 0,
		NextAction:            core.NextContinue,
		SubResults:            sub,
		InstructionForPlanner: fmt.Sprintf("%d of %d partitions succeeded", succeeded, n),
	}

	if succeeded == 0 {
		combined.Error = "all partitions failed"
		combined.InstructionForPlanner = fmt.Sprintf("all %d partitions failed; try a different approach or report the failure", n)

		return combined, nil
	}

	combined.Confidence = confidence / float64(succeeded)

	if allComplete {
		combined.NextAction = core.NextComplete
	}

	return combined, nil
}
