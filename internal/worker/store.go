package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CachedResponse is a stored copy of a same-origin GET response
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Store holds named caches of responses keyed by request URI
type Store interface {
	Put(ctx context.Context, cache, key string, r CachedResponse) error
	Match(ctx context.Context, cache, key string) (CachedResponse, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, cache string) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	caches map[string]map[string]CachedResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{caches: make(map[string]map[string]CachedResponse)}
}

func (s *MemoryStore) Put(_ context.Context, cache, key string, r CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[cache]
	if !ok {
		c = make(map[string]CachedResponse)
		s.caches[cache] = c
	}
	r.Header = r.Header.Clone()
	r.Body = slices.Clone(r.Body)
	c[key] = r
	return nil
}

func (s *MemoryStore) Match(_ context.Context, cache, key string) (CachedResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.caches[cache][key]
	if !ok {
		return CachedResponse{}, ErrCacheMiss
	}
	r.Header = r.Header.Clone()
	r.Body = slices.Clone(r.Body)
	return r, nil
}

func (s *MemoryStore) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore) Delete(_ context.Context, cache string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, cache)
	return nil
}

const redisKeyPrefix = "athena:cache:"

// RedisStore keeps each cache in one Redis hash so that deleting a cache is a
// single DEL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Put(ctx context.Context, cache, key string, r CachedResponse) error {
	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode cached response: %w", err)
	}
	if err := s.client.HSet(ctx, redisKeyPrefix+cache, key, val).Err(); err != nil {
		return fmt.Errorf("failed to store %s in %s: %w", key, cache, err)
	}
	return nil
}

func (s *RedisStore) Match(ctx context.Context, cache, key string) (CachedResponse, error) {
	val, err := s.client.HGet(ctx, redisKeyPrefix+cache, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedResponse{}, ErrCacheMiss
	}
	if err != nil {
		return CachedResponse{}, fmt.Errorf("failed to read %s from %s: %w", key, cache, err)
	}

	var r CachedResponse
	if err := json.Unmarshal(val, &r); err != nil {
		return CachedResponse{}, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return r, nil
}

func (s *RedisStore) Names(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func (s *RedisStore) Delete(ctx context.Context, cache string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+cache).Err(); err != nil {
		return fmt.Errorf("failed to delete cache %s: %w", cache, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
