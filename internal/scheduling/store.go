package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const pageKeyPrefix = "veris:page:"

// DefaultStateTTL bounds how long a page snapshot is kept after its last save.
const DefaultStateTTL = 30 * time.Minute

var (
	ErrSnapshotNotFound = errors.New("scheduling: page snapshot not found")
	ErrPageIDRequired   = errors.New("scheduling: page id required")
)

// StateStore keeps page snapshots so a page that reconnects resumes where it was.
type StateStore interface {
	Save(ctx context.Context, pageID string, page Page) error
	Load(ctx context.Context, pageID string) (Page, error)
	Delete(ctx context.Context, pageID string) error
}

type memoryEntry struct {
	page    Page
	expires time.Time
}

// MemoryStateStore is a process-local StateStore.
type MemoryStateStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	pages map[string]memoryEntry
}

// NewMemoryStateStore builds a store whose entries expire ttl after their last save.
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryStateStore{ttl: ttl, now: time.Now, pages: map[string]memoryEntry{}}
}

func (s *MemoryStateStore) Save(_ context.Context, pageID string, page Page) error {
	if pageID == "" {
		return ErrPageIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.pages {
		if !now.Before(e.expires) {
			delete(s.pages, id)
		}
	}
	s.pages[pageID] = memoryEntry{page: page, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStateStore) Load(_ context.Context, pageID string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pages[pageID]
	if !ok {
		return Page{}, ErrSnapshotNotFound
	}
	if !s.now().Before(e.expires) {
		delete(s.pages, pageID)
		return Page{}, ErrSnapshotNotFound
	}
	return e.page, nil
}

func (s *MemoryStateStore) Delete(_ context.Context, pageID string) error {
	s.mu.Lock()
	delete(s.pages, pageID)
	s.mu.Unlock()
	return nil
}

// RedisStateStore keeps snapshots in Redis as JSON with a TTL.
type RedisStateStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStateStore returns nil when client is nil.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("veris.internal.scheduling.state_store"),
	}
}

func (s *RedisStateStore) Save(ctx context.Context, pageID string, page Page) error {
	if pageID == "" {
		return ErrPageIDRequired
	}
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("scheduling: marshal page snapshot: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "scheduling.state_store.save")
	defer span.End()

	if err := s.redis.Set(ctx, pageKey(pageID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("scheduling: save page snapshot: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Load(ctx context.Context, pageID string) (Page, error) {
	if pageID == "" {
		return Page{}, ErrPageIDRequired
	}

	ctx, span := s.tracer.Start(ctx, "scheduling.state_store.load")
	defer span.End()

	raw, err := s.redis.Get(ctx, pageKey(pageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Page{}, ErrSnapshotNotFound
		}
		span.RecordError(err)
		return Page{}, fmt.Errorf("scheduling: load page snapshot: %w", err)
	}
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		span.RecordError(err)
		return Page{}, fmt.Errorf("scheduling: decode page snapshot: %w", err)
	}
	return page, nil
}

func (s *RedisStateStore) Delete(ctx context.Context, pageID string) error {
	if pageID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, pageKey(pageID)).Err(); err != nil {
		return fmt.Errorf("scheduling: delete page snapshot: %w", err)
	}
	return nil
}

func pageKey(pageID string) string { return pageKeyPrefix + pageID }
