package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/hray3182/Athena/internal/models"
)

// Status is the notification permission state
type Status string

const (
	StatusDefault Status = "default"
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

func (s Status) Valid() bool {
	return s == StatusDefault || s == StatusGranted || s == StatusDenied
}

// KV is the persisted key/value settings storage
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
	SetMany(ctx context.Context, kv map[string]string) error
}

// Prompter asks the user to allow notifications
type Prompter interface {
	Prompt(ctx context.Context) (Status, error)
}

// Gate tracks whether notifications may be delivered. Checking never prompts;
// prompting only happens through RequestStatus.
type Gate struct {
	store    KV
	prompter Prompter

	mu     sync.RWMutex
	status Status
	asked  bool
}

// NewGate loads the persisted permission state
func NewGate(ctx context.Context, store KV, prompter Prompter) (*Gate, error) {
	g := &Gate{store: store, prompter: prompter, status: StatusDefault}

	v, ok, err := store.Get(ctx, models.KeyPermission)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission: %w", err)
	}
	if ok && Status(v).Valid() {
		g.status = Status(v)
	}

	v, ok, err = store.Get(ctx, models.KeyPermissionAsked)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission prompt flag: %w", err)
	}
	if ok {
		g.asked, _ = strconv.ParseBool(v)
	}
	return g, nil
}

// CurrentStatus returns the permission state without prompting
func (g *Gate) CurrentStatus() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

func (g *Gate) Granted() bool {
	return g.CurrentStatus() == StatusGranted
}

// Asked reports whether the user has already been prompted once
func (g *Gate) Asked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.asked
}

// RequestStatus prompts the user and persists the answer. Without a prompter
// the request resolves to denied and nothing is stored.
func (g *Gate) RequestStatus(ctx context.Context) Status {
	if g.prompter == nil {
		log.Println("[gate] No prompter available, notifications unsupported")
		return StatusDenied
	}

	status, err := g.prompter.Prompt(ctx)
	if err != nil {
		log.Printf("[gate] Permission prompt failed: %v", err)
		return StatusDenied
	}

	if err := g.Set(ctx, status); err != nil {
		log.Printf("[gate] Failed to persist permission: %v", err)
	}
	return status
}

// RequestPermission prompts and reports whether permission was granted
func (g *Gate) RequestPermission(ctx context.Context) bool {
	return g.RequestStatus(ctx) == StatusGranted
}

// Set records a decision made elsewhere (for example by the browser)
func (g *Gate) Set(ctx context.Context, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid permission status %q", status)
	}

	g.mu.Lock()
	g.status = status
	g.asked = true
	g.mu.Unlock()

	return g.store.SetMany(ctx, map[string]string{
		models.KeyPermission:      string(status),
		models.KeyPermissionAsked: "true",
	})
}
