package workflow

import "github.com/relicworks/relic/pkg/stage"

// strategy is what the orchestrator does about a failed mandatory stage.
type strategy int

const (
	// strategyRetry re-runs the stage unchanged after a linear backoff.
	strategyRetry strategy = iota
	// strategyChunk re-runs the stage in partial-processing mode.
	strategyChunk
	// strategySimplify re-runs the stage with conservative parameters.
	strategySimplify
)

// strategyFor is a total match over the error-kind set; unknown failures get
// the retry treatment.
func strategyFor(kind stage.ErrorKind) strategy {
	switch kind {
	case stage.KindTimeout, stage.KindRateLimit:
		return strategyRetry
	case stage.KindComplexity:
		return strategyChunk
	case stage.KindFormat:
		return strategySimplify
	default:
		return strategyRetry
	}
}

func (s strategy) String() string {
	switch s {
	case strategyChunk:
		return "chunk"
	case strategySimplify:
		return "simplify"
	default:
		return "retry"
	}
}
