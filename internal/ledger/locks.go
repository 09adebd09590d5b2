package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// lockTable hands out one in-process mutex per account so conflicting atomic
// units serialize before touching the store. Waits are bounded; a caller that
// cannot get its locks in time fails busy instead of hanging.
//
// Entries are kept for the life of the process: each is a single one-slot
// channel, and evicting one while a waiter is parked on it would let two
// units hold the "same" account lock at once. Growth is bounded by the number
// of distinct accounts touched, which for this system is small.
type lockTable struct {
	mu    sync.Mutex
	locks map[uint64]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uint64]chan struct{})}
}

func (lt *lockTable) get(id uint64) chan struct{} {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	ch, ok := lt.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		lt.locks[id] = ch
	}
	return ch
}

func (lt *lockTable) acquire(ctx context.Context, id uint64, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case lt.get(id) <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (lt *lockTable) release(id uint64) {
	<-lt.get(id)
}

// acquireAll takes every lock in ascending id order, the fixed global order
// that keeps opposite-direction transfers from deadlocking. On failure any
// locks already held are released. The returned func releases all of them.
func (lt *lockTable) acquireAll(ctx context.Context, wait time.Duration, ids ...uint64) (func(), error) {
	sorted := make([]uint64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	held := make([]uint64, 0, len(sorted))
	for _, id := range sorted {
		if err := lt.acquire(ctx, id, wait); err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				lt.release(held[i])
			}
			return nil, err
		}
		held = append(held, id)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			lt.release(held[i])
		}
	}, nil
}
