package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock outlives a
// crashed holder.
const DefaultLockTTL = 2 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to sessions and persists their snapshots.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager persisting to store.
func NewManager(store ports.SnapshotStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session. Callers
// queue in arrival order of the underlying mutex; a caller whose context
// ends while waiting for the distributed lock gets an IoError, and so does
// one whose distributed lock could not be released cleanly.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) (err error) {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return domain.IoError(fmt.Errorf("failed to acquire distributed lock: %w", err))
		}
		defer func() {
			uerr := unlock(context.WithoutCancel(ctx))
			if uerr == nil {
				return
			}
			m.logger.Warn("Failed to release distributed lock",
				"session_id", sessionID,
				"err", uerr,
			)
			if err == nil {
				err = domain.IoError(fmt.Errorf("failed to release distributed lock: %w", uerr))
			}
		}()
	}

	return fn(ctx)
}

// Persist writes snap to the store. The caller is expected to hold the
// session lock.
func (m *Manager) Persist(ctx context.Context, snap *domain.Snapshot) error {
	if err := m.store.Save(ctx, snap.SessionID, snap); err != nil {
		return classify(err)
	}
	return nil
}

// Save persists snap under the session lock.
func (m *Manager) Save(ctx context.Context, snap *domain.Snapshot) error {
	return m.WithLock(ctx, snap.SessionID, func(ctx context.Context) error {
		return m.Persist(ctx, snap)
	})
}

// Load retrieves a stored snapshot.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, classify(err)
	}
	return snap, nil
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return classify(m.store.Delete(ctx, sessionID))
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// classify keeps taxonomy errors and reports everything else as IoError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ge *domain.GameError
	if errors.As(err, &ge) {
		return err
	}
	return domain.IoError(err)
}
