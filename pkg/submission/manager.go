package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 2 * time.Minute

// Assessor runs one assessment.
type Assessor interface {
	Run(ctx context.Context, req orchestrator.Request) (*audit.Bundle, error)
}

// Result is a submission outcome. Replayed is set when the bundle was
// already stored under the requested ID.
type Result struct {
	Bundle   *audit.Bundle
	Replayed bool
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager runs and stores assessments, one bundle per ID.
type Manager struct {
	assessor Assessor
	repo     *audit.Repository

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	newID   func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager that stores bundles in repo.
func NewManager(assessor Assessor, repo *audit.Repository, opts ...Option) *Manager {
	m := &Manager{
		assessor: assessor,
		repo:     repo,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit runs req unless a bundle already exists for its ID. An empty ID is
// assigned. Canceled runs return their bundle with the context error and are
// not stored, so the ID can be submitted again.
func (m *Manager) Submit(ctx context.Context, req orchestrator.Request) (Result, error) {
	if req.ID == "" {
		req.ID = m.newID()
	}

	var res Result
	err := m.WithLock(ctx, req.ID, func(ctx context.Context) error {
		existing, err := m.repo.Load(ctx, req.ID)
		if err == nil {
			m.logger.Info("submission replayed", "assessment_id", req.ID)
			res = Result{Bundle: existing, Replayed: true}
			return nil
		}
		if !errors.Is(err, domain.ErrBundleNotFound) {
			return err
		}

		b, runErr := m.assessor.Run(ctx, req)
		if b == nil {
			return runErr
		}
		res = Result{Bundle: b}
		if runErr != nil {
			return runErr
		}
		if err := m.repo.Save(ctx, b); err != nil {
			return err
		}
		return nil
	})
	return res, err
}

// Get returns the stored bundle for id.
func (m *Manager) Get(ctx context.Context, id string) (*audit.Bundle, error) {
	return m.repo.Load(ctx, id)
}

// List returns stored bundle IDs.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.repo.List(ctx)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for id.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"assessment_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
