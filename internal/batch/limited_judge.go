package batch

import (
	"context"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"golang.org/x/sync/semaphore"
)

// LimitedJudge wraps a model judge with a weighted semaphore so a batch
// never has more than the configured number of external model calls in
// flight. Acquisition respects context cancellation, so a cancelled batch
// stops issuing new calls while in-flight ones finish normally.
type LimitedJudge struct {
	inner core.ModelJudge
	sem   *semaphore.Weighted
}

// NewLimitedJudge bounds the judge to limit concurrent calls. A limit of
// zero or less leaves the judge unbounded.
func NewLimitedJudge(inner core.ModelJudge, limit int64) core.ModelJudge {
	if limit <= 0 {
		return inner
	}
	return &LimitedJudge{
		inner: inner,
		sem:   semaphore.NewWeighted(limit),
	}
}

// JudgeEmail waits for a slot, then delegates to the wrapped judge
func (j *LimitedJudge) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	if err := j.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer j.sem.Release(1)

	return j.inner.JudgeEmail(ctx, email)
}
