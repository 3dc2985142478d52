// Package trial meters uploads made without a signed-in user.
//
// A [Gate] decides whether an upload may proceed. Signed-in users are never
// limited; everyone else gets [MaxTrialUploads] successful uploads, counted in
// durable storage under [StorageKey] so the limit survives restarts. The quota
// is enforced on this device only.
package trial

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/transcribeflow/internal/models"
)

// MaxTrialUploads is the number of successful uploads allowed without signing in.
const MaxTrialUploads = 2

// StorageKey is the durable key holding the trial count as a decimal string.
const StorageKey = "trial_uploads"

// Store is durable key/value storage.
//
// Get returns nil with no error for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Identity reports whether a user is signed in.
type Identity interface {
	Load(ctx context.Context) error
	CurrentUser() *models.User
}

// Gate holds the authenticated flag and trial usage count.
type Gate struct {
	mu            sync.Mutex
	identity      Identity
	store         Store
	logger        *log.Logger
	authenticated bool
	used          int
}

// NewGate creates a Gate. It starts unauthenticated with no recorded uploads until [Gate.Initialize] runs.
func NewGate(identity Identity, store Store, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{identity: identity, store: store, logger: logger}
}

// Initialize asks the identity provider for the current user and loads the stored trial count.
//
// It never fails: a provider error or panic is treated as no user, and an unreadable count as 0.
// When a user is signed in the stored count is neither read nor modified.
func (g *Gate) Initialize(ctx context.Context) {
	authenticated := g.checkIdentity(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.authenticated = authenticated
	if authenticated {
		return
	}
	g.used = g.loadCount(ctx)
}

func (g *Gate) checkIdentity(ctx context.Context) (ok bool) {
	if g.identity == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("identity provider panicked, continuing in trial mode", "panic", r)
			ok = false
		}
	}()

	if err := g.identity.Load(ctx); err != nil {
		g.logger.Warn("identity provider failed to load, continuing in trial mode", "error", err)
		return false
	}
	return g.identity.CurrentUser() != nil
}

func (g *Gate) loadCount(ctx context.Context) int {
	if g.store == nil {
		return 0
	}

	raw, err := g.store.Get(ctx, StorageKey)
	if err != nil {
		g.logger.Warn("failed to read trial count", "error", err)
		return 0
	}
	return ParseCount(raw)
}

// ParseCount decodes a stored count. Missing, malformed or negative values read as 0.
func ParseCount(raw []byte) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CanUpload reports whether another upload is permitted.
func (g *Gate) CanUpload() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated || g.used < MaxTrialUploads
}

// RemainingTrials returns how many trial uploads are left, never negative.
func (g *Gate) RemainingTrials() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(0, MaxTrialUploads-g.used)
}

// RecordSuccessfulUpload counts one completed trial upload and writes the new count through to storage.
//
// It does nothing for a signed-in user. A write failure is returned but the in-memory count still advances.
func (g *Gate) RecordSuccessfulUpload(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.authenticated {
		return nil
	}

	g.used++
	if g.store == nil {
		return nil
	}
	if err := g.store.Set(ctx, StorageKey, []byte(strconv.Itoa(g.used))); err != nil {
		return fmt.Errorf("failed to persist trial count: %w", err)
	}
	return nil
}

// UploadMode reports the mode new uploads are made in.
func (g *Gate) UploadMode() models.UploadMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authenticated {
		return models.ModeAuthenticated
	}
	return models.ModeTrial
}

// Authenticated reports whether Initialize found a signed-in user.
func (g *Gate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// Used returns the trial uploads counted so far.
func (g *Gate) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}
