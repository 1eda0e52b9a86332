package batch

import (
	"context"
	"sync"

	"github.com/mikey/llm-phishing-detector/internal/analyzer"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

// ItemResult is the outcome for one email in a batch. Exactly one of
// Result and Err is set.
type ItemResult struct {
	Index  int
	Result *core.AnalysisResult
	Err    error
}

// Coordinator runs the analysis pipeline over many emails. Output order
// always matches input order regardless of completion order, and one
// item's failure never aborts the batch.
//
// Extraction and pattern matching are local computation and run with a
// goroutine per item; the expensive external model calls are bounded
// separately by the LimitedJudge the service is built with.
type Coordinator struct {
	service *analyzer.Service
	logger  *zap.Logger
}

// NewCoordinator creates a new batch coordinator
func NewCoordinator(service *analyzer.Service, logger *zap.Logger) *Coordinator {
	return &Coordinator{service: service, logger: logger}
}

// AnalyzeAll analyzes every email and returns one ItemResult per input, in
// input order. Cancelling the context stops starting new analyses promptly;
// items already completed keep their results, the rest report ctx.Err().
func (c *Coordinator) AnalyzeAll(ctx context.Context, emails []*core.EmailRecord) []ItemResult {
	results := make([]ItemResult, len(emails))

	var wg sync.WaitGroup
	for i, email := range emails {
		results[i].Index = i

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		wg.Add(1)
		go func(i int, email *core.EmailRecord) {
			defer wg.Done()
			result, err := c.service.AnalyzeEmail(ctx, email)
			if err != nil {
				c.logger.Warn("Batch item failed",
					zap.Int("index", i),
					zap.Error(err))
				results[i].Err = err
				return
			}
			results[i].Result = result
		}(i, email)
	}
	wg.Wait()

	return results
}
