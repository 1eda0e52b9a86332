package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLCache is a MySQL implementation of the ResultCache interface, for
// deployments that share one analysis cache across processes
type MySQLCache struct {
	db          *sql.DB
	capacity    int
	ttl         time.Duration
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL-backed cache
func NewMySQLCache(dsn string, capacity int, ttl time.Duration, cleanupFreq time.Duration, logger *zap.Logger) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrCacheUnavailable, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			fingerprint VARCHAR(64) PRIMARY KEY,
			result TEXT NOT NULL,
			created_at TIMESTAMP NULL,
			expires_at TIMESTAMP NULL,
			last_accessed TIMESTAMP NULL,
			INDEX idx_analysis_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		capacity:    capacity,
		ttl:         ttl,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a cached result by fingerprint
func (c *MySQLCache) Get(ctx context.Context, fingerprint string) (*core.AnalysisResult, error) {
	var encoded string

	err := c.db.QueryRowContext(ctx, `
		SELECT result
		FROM analysis_cache
		WHERE fingerprint = ? AND (expires_at IS NULL OR expires_at > NOW())
	`, fingerprint).Scan(&encoded)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", core.ErrCacheUnavailable, err)
	}

	var result core.AnalysisResult
	if err := json.Unmarshal([]byte(encoded), &result); err != nil {
		return nil, fmt.Errorf("%w: corrupt cache entry: %v", core.ErrCacheUnavailable, err)
	}

	if _, err := c.db.ExecContext(ctx, `
		UPDATE analysis_cache SET last_accessed = NOW() WHERE fingerprint = ?
	`, fingerprint); err != nil {
		c.logger.Warn("Failed to update cache recency", zap.Error(err))
	}

	return &result, nil
}

// Set stores a result, then prunes least recently used rows beyond capacity
func (c *MySQLCache) Set(ctx context.Context, fingerprint string, result *core.AnalysisResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	var expiresAt interface{}
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl).Format(mysqlTimeFormat)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (fingerprint, result, created_at, expires_at, last_accessed)
		VALUES (?, ?, NOW(), ?, NOW())
		ON DUPLICATE KEY UPDATE
			result = VALUES(result),
			expires_at = VALUES(expires_at),
			last_accessed = VALUES(last_accessed)
	`, fingerprint, string(encoded), expiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCacheUnavailable, err)
	}

	if c.capacity > 0 {
		if _, err := c.db.ExecContext(ctx, `
			DELETE FROM analysis_cache
			WHERE fingerprint NOT IN (
				SELECT fingerprint FROM (
					SELECT fingerprint FROM analysis_cache
					ORDER BY last_accessed DESC
					LIMIT ?
				) AS recent
			)
		`, c.capacity); err != nil {
			c.logger.Warn("Failed to prune cache to capacity", zap.Error(err))
		}
	}

	return nil
}

// Delete removes a cache entry
func (c *MySQLCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache
		WHERE fingerprint = ?
	`, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache
		WHERE expires_at IS NOT NULL AND expires_at <= NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MySQLCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
