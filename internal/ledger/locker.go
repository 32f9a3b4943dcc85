package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mashael7430-ux/MPADCS/pkg/config"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

// Release frees every lock taken by one Acquire call.
type Release func()

// Locker serializes mutations per medication. Holders keep the lock from the
// pre-count read until the transaction commits.
type Locker interface {
	Acquire(ctx context.Context, ids ...uuid.UUID) (Release, error)
}

// sortedUnique orders ids so multi-medication acquisitions cannot deadlock.
func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func lockWaitError(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeCancelled, err, "canceled while waiting for medication lock")
}

type keyedEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedLocker is an in-process per-medication lock.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*keyedEntry
}

// NewKeyedLocker returns an empty in-process locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: map[uuid.UUID]*keyedEntry{}}
}

func (l *KeyedLocker) ref(id uuid.UUID) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &keyedEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = entry
	}
	entry.refs++
	return entry.sem
}

func (l *KeyedLocker) unref(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, id)
	}
}

func (l *KeyedLocker) Acquire(ctx context.Context, ids ...uuid.UUID) (Release, error) {
	type heldLock struct {
		id  uuid.UUID
		sem *semaphore.Weighted
	}
	ordered := sortedUnique(ids)
	held := make([]heldLock, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].sem.Release(1)
			l.unref(held[i].id)
		}
	}

	for _, id := range ordered {
		sem := l.ref(id)
		if err := sem.Acquire(ctx, 1); err != nil {
			l.unref(id)
			release()
			return nil, lockWaitError(err)
		}
		held = append(held, heldLock{id: id, sem: sem})
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// redisLockStore defines the operations used by RedisLocker.
type redisLockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	MedicationLockKey(medicationID string) string
}

// RedisLocker serializes mutations across API replicas with SETNX + TTL.
type RedisLocker struct {
	client redisLockStore
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker constructs a Redis-backed medication locker.
func NewRedisLocker(client redisLockStore, cfg config.LedgerConfig) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for ledger lock")
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	wait := cfg.LockWait
	if wait <= 0 {
		wait = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, ids ...uuid.UUID) (Release, error) {
	owner := uuid.NewString()
	var held []string
	release := func() {
		// The caller's context may already be canceled; unlock on a short fresh budget.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			// a key whose TTL lapsed may now belong to another replica
			_, _ = l.client.DelIfValue(ctx, held[i], owner)
		}
	}

	for _, id := range sortedUnique(ids) {
		key := l.client.MedicationLockKey(id.String())
		if err := l.acquireKey(ctx, key, owner); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *RedisLocker) acquireKey(ctx context.Context, key, owner string) error {
	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return lockWaitError(ctxErr)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("setnx %s: %w", key, err), "medication lock unavailable")
		}
		if ok {
			return nil
		}
		timer := time.NewTimer(l.wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lockWaitError(ctx.Err())
		case <-timer.C:
		}
	}
}

// NewLocker picks the locker configured for the deployment.
func NewLocker(cfg config.LedgerConfig, client redisLockStore) (Locker, error) {
	if cfg.UsesRedisLock() {
		return NewRedisLocker(client, cfg)
	}
	return NewKeyedLocker(), nil
}
