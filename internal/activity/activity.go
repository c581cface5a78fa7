// Package activity keeps a short log of requests served by the reference service.
package activity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/redis.v5"
)

// DefaultKey is the Redis list holding the log.
const DefaultKey = "bookman:activity"

// DefaultMax bounds the number of entries kept.
const DefaultMax = 50

// Entry is one served request.
type Entry struct {
	RequestID string    `json:"request_id"`
	Method    string    `json:"method"`
	Route     string    `json:"route"`
	Status    int       `json:"status"`
	At        time.Time `json:"at"`
}

// Recorder stores and returns recent entries, newest first.
type Recorder interface {
	Record(e Entry) error
	Recent() ([]Entry, error)
}

// listClient is the subset of *redis.Client the log needs.
type listClient interface {
	LPush(key string, values ...interface{}) *redis.IntCmd
	LTrim(key string, start, stop int64) *redis.StatusCmd
	LRange(key string, start, stop int64) *redis.StringSliceCmd
}

// RedisLog is a capped Redis list of entries.
type RedisLog struct {
	client listClient
	key    string
	max    int
}

// Dial connects to Redis at addr (host:port, an optional redis:// prefix is accepted).
func Dial(addr string) (*redis.Client, error) {
	addr = strings.TrimPrefix(strings.TrimSpace(addr), "redis://")
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisLog keeps the last max entries under key.
func NewRedisLog(client listClient, key string, max int) *RedisLog {
	if key == "" {
		key = DefaultKey
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &RedisLog{client: client, key: key, max: max}
}

func (l *RedisLog) Record(e Entry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}

	if err := l.client.LPush(l.key, value).Err(); err != nil {
		return fmt.Errorf("failed to push activity: %w", err)
	}
	if err := l.client.LTrim(l.key, 0, int64(l.max-1)).Err(); err != nil {
		return fmt.Errorf("failed to trim activity: %w", err)
	}
	return nil
}

func (l *RedisLog) Recent() ([]Entry, error) {
	raw, err := l.client.LRange(l.key, 0, int64(l.max-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
