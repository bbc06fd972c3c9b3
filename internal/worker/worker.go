package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hray3182/Athena/internal/models"
)

// CacheName is the only cache kept after activation
const CacheName = "athena-cache-v1"

// PrecacheAssets are fetched from the frontend origin during install
var PrecacheAssets = []string{
	"/",
	OfflinePage,
	"/icons/icon-192x192.png",
	"/icons/icon-512x512.png",
	"/icons/badge-96x96.png",
	"/icons/water-reminder.png",
	"/icons/motivation.png",
	"/icons/health-reminder.png",
}

const (
	PushDefaultTitle = "Athena Notification"
	PushDefaultBody  = "New notification"
)

var ErrNotActive = errors.New("worker is not active")

// Renderer puts notifications in front of the user while no page is needed
type Renderer interface {
	Show(ctx context.Context, p models.Payload) error
	Close(ctx context.Context, tag string) error
	OpenWindow(ctx context.Context, url string) error
}

// Windows is the set of open application pages
type Windows interface {
	FocusLatest(msg models.ClickMessage) bool
}

type ClickObserver interface {
	Clicked(msg models.ClickMessage)
}

// Click is a press on a rendered notification or one of its buttons
type Click struct {
	Tag    string
	Action string
	Data   map[string]string
}

type State string

const (
	StateNone       State = ""
	StateInstalling State = "installing"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Registration describes an activated worker
type Registration struct {
	Scope       string    `json:"scope"`
	Cache       string    `json:"cache"`
	ActivatedAt time.Time `json:"activatedAt"`
}

type message struct {
	show  *models.Payload
	click *Click
}

// Worker renders notifications and handles clicks on its own goroutine.
// Callers talk to it through its inbox only.
type Worker struct {
	renderer  Renderer
	windows   Windows
	store     Store
	origin    *url.URL
	client    *http.Client
	observers []ClickObserver
	inbox     chan message

	regMu sync.Mutex

	mu      sync.Mutex
	reg     *Registration
	state   State
	running bool
}

func New(renderer Renderer, windows Windows, store Store, origin *url.URL, observers ...ClickObserver) *Worker {
	return &Worker{
		renderer:  renderer,
		windows:   windows,
		store:     store,
		origin:    origin,
		client:    &http.Client{Timeout: 10 * time.Second},
		observers: observers,
		inbox:     make(chan message, 32),
	}
}

// Register installs and activates the worker. Repeated calls return the
// existing registration.
func (w *Worker) Register(ctx context.Context) (*Registration, error) {
	w.regMu.Lock()
	defer w.regMu.Unlock()

	if reg := w.Registration(); reg != nil {
		return reg, nil
	}

	w.setState(StateInstalling)
	if err := w.install(ctx); err != nil {
		w.setState(StateRedundant)
		log.Printf("[worker] Registration failed: %v", err)
		return nil, fmt.Errorf("failed to install worker: %w", err)
	}
	if err := w.activate(ctx); err != nil {
		w.setState(StateRedundant)
		log.Printf("[worker] Registration failed: %v", err)
		return nil, fmt.Errorf("failed to activate worker: %w", err)
	}

	reg := &Registration{Scope: "/", Cache: CacheName, ActivatedAt: time.Now()}
	w.mu.Lock()
	w.reg = reg
	w.state = StateActivated
	w.mu.Unlock()

	log.Printf("[worker] Registered with scope %s", reg.Scope)
	return reg, nil
}

// KeepRegistering calls Register until it succeeds or ctx is done, doubling
// the wait after each failure up to ceiling.
func (w *Worker) KeepRegistering(ctx context.Context, initial, ceiling time.Duration) (*Registration, error) {
	wait := initial
	for attempt := 1; ; attempt++ {
		reg, err := w.Register(ctx)
		if err == nil {
			return reg, nil
		}
		log.Printf("[worker] Registration attempt %d failed, retrying in %s", attempt, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, ceiling)
	}
}

func (w *Worker) Registration() *Registration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// install fetches every precache asset and stores them only if all succeed
func (w *Worker) install(ctx context.Context) error {
	if w.origin == nil {
		log.Println("[worker] No frontend origin configured, skipping precache")
		return nil
	}

	entries := make(map[string]CachedResponse, len(PrecacheAssets))
	for _, asset := range PrecacheAssets {
		entry, err := w.fetch(ctx, asset)
		if err != nil {
			return err
		}
		entries[asset] = entry
	}

	for asset, entry := range entries {
		if err := w.store.Put(ctx, CacheName, asset, entry); err != nil {
			return err
		}
	}
	log.Printf("[worker] Cached %d assets", len(entries))
	return nil
}

func (w *Worker) fetch(ctx context.Context, asset string) (CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.origin.ResolveReference(&url.URL{Path: asset}).String(), nil)
	if err != nil {
		return CachedResponse{}, fmt.Errorf("failed to build request for %s: %w", asset, err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return CachedResponse{}, fmt.Errorf("failed to fetch %s: %w", asset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CachedResponse{}, fmt.Errorf("failed to fetch %s: status %d", asset, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CachedResponse{}, fmt.Errorf("failed to read %s: %w", asset, err)
	}
	return CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// activate deletes every cache except the current one
func (w *Worker) activate(ctx context.Context) error {
	names, err := w.store.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == CacheName {
			continue
		}
		log.Printf("[worker] Deleting old cache: %s", name)
		if err := w.store.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Run processes the inbox until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	log.Println("[worker] Started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[worker] Stopped")
			return
		case m := <-w.inbox:
			w.process(ctx, m)
		}
	}
}

func (w *Worker) process(ctx context.Context, m message) {
	switch {
	case m.show != nil:
		if err := w.renderer.Show(ctx, *m.show); err != nil {
			log.Printf("[worker] Failed to show %q: %v", m.show.Tag, err)
		}
	case m.click != nil:
		w.click(ctx, *m.click)
	}
}

// Available reports whether the worker is activated and processing messages
func (w *Worker) Available() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateActivated && w.running
}

// Deliver hands p to the worker. It reports true once the worker has
// accepted the message.
func (w *Worker) Deliver(ctx context.Context, p models.Payload) bool {
	if !w.Available() {
		return false
	}
	return w.post(ctx, message{show: &p})
}

// Push renders a JSON push payload. An empty push shows nothing.
func (w *Worker) Push(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if !w.Available() {
		return ErrNotActive
	}

	var p models.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to decode push payload: %w", err)
	}
	p = pushDefaults(p)

	if !w.post(ctx, message{show: &p}) {
		return ctx.Err()
	}
	return nil
}

func pushDefaults(p models.Payload) models.Payload {
	if p.Title == "" {
		p.Title = PushDefaultTitle
	}
	if p.Body == "" {
		p.Body = PushDefaultBody
	}
	return p.WithDefaults()
}

// HandleClick queues a click for the worker goroutine
func (w *Worker) HandleClick(ctx context.Context, c Click) bool {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return false
	}
	return w.post(ctx, message{click: &c})
}

func (w *Worker) post(ctx context.Context, m message) bool {
	select {
	case w.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Worker) click(ctx context.Context, c Click) {
	if c.Tag != "" {
		if err := w.renderer.Close(ctx, c.Tag); err != nil {
			log.Printf("[worker] Failed to close %q: %v", c.Tag, err)
		}
	}

	target := DeepLink(c.Action, c.Data)
	msg := models.ClickMessage{
		Type:             models.ClickMessageType,
		Action:           c.Action,
		NotificationData: c.Data,
		URL:              target,
	}
	for _, o := range w.observers {
		o.Clicked(msg)
	}

	if w.windows != nil && w.windows.FocusLatest(msg) {
		return
	}
	if err := w.renderer.OpenWindow(ctx, target); err != nil {
		log.Printf("[worker] Failed to open %s: %v", target, err)
	}
}
