package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/stretchr/testify/assert"
)

// concurrencyProbe records the peak number of simultaneous calls
type concurrencyProbe struct {
	current int64
	peak    int64
}

func (p *concurrencyProbe) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	n := atomic.AddInt64(&p.current, 1)
	for {
		peak := atomic.LoadInt64(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt64(&p.peak, peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt64(&p.current, -1)
	return &core.ModelVerdict{Probability: 0.5, Confidence: 0.9}, nil
}

func TestLimitedJudgeBoundsConcurrency(t *testing.T) {
	probe := &concurrencyProbe{}
	judge := NewLimitedJudge(probe, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := judge.JudgeEmail(context.Background(), &core.EmailRecord{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&probe.peak), int64(2))
	assert.Greater(t, atomic.LoadInt64(&probe.peak), int64(0))
}

func TestLimitedJudgeZeroLimitUnbounded(t *testing.T) {
	probe := &concurrencyProbe{}
	assert.Same(t, core.ModelJudge(probe), NewLimitedJudge(probe, 0))
}

func TestLimitedJudgeCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	judge := NewLimitedJudge(blockingJudge{release: release}, 1)

	holdDone := make(chan struct{})
	go func() {
		defer close(holdDone)
		_, err := judge.JudgeEmail(context.Background(), &core.EmailRecord{})
		assert.NoError(t, err)
	}()

	// Let the holder grab the only slot, then try to enter with a dead context
	time.Sleep(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := judge.JudgeEmail(ctx, &core.EmailRecord{})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-holdDone
}

type blockingJudge struct {
	release chan struct{}
}

func (b blockingJudge) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &core.ModelVerdict{Probability: 0.5, Confidence: 0.9}, nil
}
