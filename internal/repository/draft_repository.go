package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/council-portal-api/internal/models"
)

// DraftRepository keeps admin form drafts in Redis, or in process memory when no
// client is configured.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	memory map[string]memoryDraft
	now    func() time.Time
}

type memoryDraft struct {
	payload   []byte
	expiresAt time.Time
}

// NewDraftRepository constructs the repository. A nil client selects the in-memory store.
func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &DraftRepository{client: client, ttl: ttl, memory: make(map[string]memoryDraft), now: time.Now}
}

func draftKey(userID string, table models.ContentTable) string {
	return fmt.Sprintf("draft:%s:%s", userID, table)
}

// Get loads a draft. The boolean is false when none is stored.
func (r *DraftRepository) Get(ctx context.Context, userID string, table models.ContentTable) (*models.Draft, bool, error) {
	key := draftKey(userID, table)
	var raw []byte
	if r.client != nil {
		b, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("redis get %s: %w", key, err)
		}
		raw = b
	} else {
		r.mu.Lock()
		entry, ok := r.memory[key]
		if ok && r.now().After(entry.expiresAt) {
			delete(r.memory, key)
			ok = false
		}
		r.mu.Unlock()
		if !ok {
			return nil, false, nil
		}
		raw = entry.payload
	}

	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, false, fmt.Errorf("decode draft %s: %w", key, err)
	}
	return &draft, true, nil
}

// Save stores a draft and refreshes its expiry.
func (r *DraftRepository) Save(ctx context.Context, userID string, draft *models.Draft) error {
	key := draftKey(userID, draft.Table)
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", key, err)
	}
	if r.client != nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis set %s: %w", key, err)
		}
		return nil
	}
	r.mu.Lock()
	r.memory[key] = memoryDraft{payload: payload, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return nil
}

// Delete drops a stored draft.
func (r *DraftRepository) Delete(ctx context.Context, userID string, table models.ContentTable) error {
	key := draftKey(userID, table)
	if r.client != nil {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
		return nil
	}
	r.mu.Lock()
	delete(r.memory, key)
	r.mu.Unlock()
	return nil
}
