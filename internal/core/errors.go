package core

import "errors"

var (
	// ErrMalformedInput is returned when an EmailRecord is missing required
	// fields (sender, body). Fatal per item, never retried.
	ErrMalformedInput = errors.New("malformed email record")

	// ErrModelTimeout is returned by a model judge when the call exceeded its
	// deadline. Recovered locally by falling back to degraded mode.
	ErrModelTimeout = errors.New("model call timed out")

	// ErrModelSchema is returned when the model response does not satisfy the
	// verdict schema. Recovered locally by falling back to degraded mode.
	ErrModelSchema = errors.New("model response failed schema validation")

	// ErrCacheMiss is returned by a cache Get when no entry exists for the
	// fingerprint
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrCacheUnavailable is returned when the cache backend cannot be
	// reached. Non-fatal: the engine re-scores without caching.
	ErrCacheUnavailable = errors.New("result cache unavailable")

	// ErrConfiguration is returned at startup for invalid thresholds or a
	// blend weight out of range
	ErrConfiguration = errors.New("invalid configuration")
)
