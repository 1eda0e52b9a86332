package core

import (
	"context"
)

// ModelJudge defines the interface for the external language-model judgment.
// Implementations must be idempotent for identical input content.
type ModelJudge interface {
	// JudgeEmail issues one classification request for the email and returns
	// the parsed verdict. A timeout or unparseable response is reported as an
	// error (ErrModelTimeout / ErrModelSchema), never as a guessed verdict.
	JudgeEmail(ctx context.Context, email *EmailRecord) (*ModelVerdict, error)
}

// ResultCache defines the interface for memoizing analysis results by
// content fingerprint
type ResultCache interface {
	// Get retrieves a cached result, or ErrCacheMiss if absent or expired
	Get(ctx context.Context, fingerprint string) (*AnalysisResult, error)

	// Set stores a result under the fingerprint
	Set(ctx context.Context, fingerprint string, result *AnalysisResult) error

	// Delete removes a cache entry
	Delete(ctx context.Context, fingerprint string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
