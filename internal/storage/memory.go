package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sevigo/review-broker/internal/core"
)

// Stored review results are never mutated after a write, so records share
// the *ReviewResult pointer and copy only the surrounding struct.

type memoryTaskStore struct {
	mu     sync.RWMutex
	tasks  map[string]*core.Task
	active map[core.CacheKey]string
	now    func() time.Time
}

// NewMemoryTaskStore returns a TaskStore kept in process memory.
func NewMemoryTaskStore() core.TaskStore {
	return &memoryTaskStore{
		tasks:  make(map[string]*core.Task),
		active: make(map[core.CacheKey]string),
		now:    time.Now,
	}
}

func (s *memoryTaskStore) Create(_ context.Context, task *core.Task) error {
	if err := validateNewTask(task); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s: %w", task.ID, core.ErrConflict)
	}
	key, claims := task.ActiveKey()
	if claims {
		if owner, busy := s.active[key]; busy {
			return &core.ActiveTaskError{TaskID: owner, Key: key}
		}
	}

	stored := *task
	stampTimes(&stored, s.now())
	s.tasks[stored.ID] = &stored
	if claims {
		s.active[key] = stored.ID
	}
	*task = stored
	return nil
}

func (s *memoryTaskStore) Get(_ context.Context, id string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	cp := *task
	return &cp, nil
}

func (s *memoryTaskStore) Transition(_ context.Context, id string, from, to core.TaskStatus, update core.TaskUpdate) (*core.Task, error) {
	if !core.CanTransition(from, to) {
		return nil, fmt.Errorf("task %s %s -> %s: %w", id, from, to, core.ErrIllegalTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if current.Status != from {
		return nil, &core.StaleTransitionError{TaskID: id, Expected: from, Actual: current.Status}
	}

	oldKey, held := current.ActiveKey()
	next := *current
	update.Apply(&next, to, s.now())
	newKey, holds := next.ActiveKey()
	if held && (!holds || newKey != oldKey) && s.active[oldKey] == id {
		delete(s.active, oldKey)
	}

	s.tasks[id] = &next
	cp := next
	return &cp, nil
}

type memoryCacheStore struct {
	mu      sync.RWMutex
	entries map[core.CacheKey]*core.CacheEntry
	now     func() time.Time
}

// NewMemoryCacheStore returns a CacheStore kept in process memory.
func NewMemoryCacheStore() core.CacheStore {
	return &memoryCacheStore{
		entries: make(map[core.CacheKey]*core.CacheEntry),
		now:     time.Now,
	}
}

func (s *memoryCacheStore) Get(_ context.Context, key core.CacheKey) (*core.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("cache entry %s: %w", key, core.ErrNotFound)
	}
	cp := *entry
	return &cp, nil
}

func (s *memoryCacheStore) PutIfAbsent(_ context.Context, key core.CacheKey, entry *core.CacheEntry) (bool, error) {
	if err := validateCacheEntry(key, entry); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return false, nil
	}
	stored := *entry
	stored.Key = key
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.entries[key] = &stored
	return true, nil
}

type memoryDeliveryStore struct {
	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewMemoryDeliveryStore returns a DeliveryStore kept in process memory.
func NewMemoryDeliveryStore() core.DeliveryStore {
	return &memoryDeliveryStore{deliveries: make(map[string]time.Time)}
}

func (s *memoryDeliveryStore) RecordIfAbsent(_ context.Context, deliveryID string, receivedAt time.Time) (bool, error) {
	if deliveryID == "" {
		return false, fmt.Errorf("empty delivery id: %w", core.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.deliveries[deliveryID]; seen {
		return false, nil
	}
	s.deliveries[deliveryID] = receivedAt
	return true, nil
}

func (s *memoryDeliveryStore) Forget(_ context.Context, deliveryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deliveries, deliveryID)
	return nil
}

func (s *memoryDeliveryStore) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, receivedAt := range s.deliveries {
		if receivedAt.Before(cutoff) {
			delete(s.deliveries, id)
			removed++
		}
	}
	return removed, nil
}

func validateNewTask(task *core.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task without id: %w", core.ErrInvalidInput)
	}
	if !task.Status.Valid() {
		return fmt.Errorf("task %s has unknown status %q: %w", task.ID, task.Status, core.ErrInvalidInput)
	}
	return nil
}

func validateCacheEntry(key core.CacheKey, entry *core.CacheEntry) error {
	if key.Repository == "" || key.Revision == "" {
		return fmt.Errorf("incomplete cache key %q: %w", key, core.ErrInvalidInput)
	}
	if entry == nil || entry.Result == nil {
		return fmt.Errorf("cache entry %s without result: %w", key, core.ErrInvalidInput)
	}
	return nil
}

func stampTimes(task *core.Task, now time.Time) {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
}
