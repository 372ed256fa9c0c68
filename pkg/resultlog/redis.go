// Package resultlog publishes load case results to Redis.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/mssql-typeload/pkg/harness"
)

// Config - Redis endpoint and key settings.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Prefix of every key and channel, "typeload" by default
	Prefix string `yaml:"prefix"`

	// TTL of state keys in seconds, 0 keeps them forever
	TTL int `yaml:"ttl"`
}

// DefaultPrefix is used when Config.Prefix is empty.
const DefaultPrefix = "typeload"

// CaseResult is the published form of a harness.Result.
//
// Redis keys:
//
//	SET  <prefix>:case:<name>:state  <JSON>  EX <ttl>  latest state, for polling
//	PUB  <prefix>:case:<name>                          event, for subscribers
type CaseResult struct {
	Case         string    `json:"case"`
	Mode         string    `json:"mode"`
	Table        string    `json:"table,omitempty"`
	Status       string    `json:"status"` // "success" | "failed"
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMs   int64     `json:"duration_ms"`
	Expected     int64     `json:"expected"`
	RowsSent     int64     `json:"rows_sent"`
	RowsAffected int64     `json:"rows_affected"`
	Verified     bool      `json:"verified"`
	Digest       string    `json:"digest,omitempty"`
	Error        *string   `json:"error,omitempty"`
}

// FromResult converts a harness result.
func FromResult(res harness.Result) CaseResult {
	out := CaseResult{
		Case:         res.Name,
		Mode:         res.Mode.String(),
		Table:        res.Table,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.StartedAt.Add(res.Duration),
		DurationMs:   res.Duration.Milliseconds(),
		Expected:     res.Expected,
		RowsSent:     res.RowsSent,
		RowsAffected: res.RowsAffected,
		Verified:     res.Verified,
		Digest:       res.Digest,
	}

	if res.Err != nil {
		out.Status = "failed"
		errStr := res.Err.Error()
		out.Error = &errStr
	} else {
		out.Status = "success"
	}

	return out
}

// RedisPublisher publishes case results to Redis.
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher creates a publisher from config.
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	return &RedisPublisher{client: client, config: config}
}

// StateKey returns the key holding the latest state of a case.
func (p *RedisPublisher) StateKey(caseName string) string {
	return fmt.Sprintf("%s:case:%s:state", p.config.Prefix, caseName)
}

// Channel returns the pub/sub channel of a case.
func (p *RedisPublisher) Channel(caseName string) string {
	return fmt.Sprintf("%s:case:%s", p.config.Prefix, caseName)
}

// Publish stores the result with SET (and TTL) and announces it with
// PUBLISH. Called for failed cases as well as successful ones.
func (p *RedisPublisher) Publish(ctx context.Context, res harness.Result) error {
	payload, err := json.Marshal(FromResult(res))
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second

	if err := p.client.Set(ctx, p.StateKey(res.Name), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(res.Name), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
