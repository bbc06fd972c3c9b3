package repository

import (
	"context"
	"maps"
	"sync"
)

// MemorySettingsRepository keeps settings in process memory. Used when no
// database is configured; values are lost on restart.
type MemorySettingsRepository struct {
	mu sync.RWMutex
	kv map[string]string
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{kv: make(map[string]string)}
}

func (r *MemorySettingsRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.kv[key]
	return v, ok, nil
}

func (r *MemorySettingsRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kv[key] = value
	return nil
}

func (r *MemorySettingsRepository) SetMany(_ context.Context, kv map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	maps.Copy(r.kv, kv)
	return nil
}

func (r *MemorySettingsRepository) All(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.kv), nil
}

func (r *MemorySettingsRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.kv, key)
	return nil
}
