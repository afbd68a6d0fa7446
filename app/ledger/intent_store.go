package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

const (
	refKeyPrefix  = "billing:intent:ref:"
	userKeyPrefix = "billing:intent:user:"
)

// IntentStore holds pending checkout intents across the provider redirect
// round-trip. Each intent is kept under its reference (the verifier's
// cross-check source) and under a single per-user slot that is overwritten
// on every new initiation, so at most one intent per user is live.
type IntentStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIntentStore(client *redis.Client, ttl time.Duration) *IntentStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IntentStore{client: client, ttl: ttl}
}

func (s *IntentStore) Record(ctx context.Context, intent *entity.CheckoutIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, refKeyPrefix+intent.Reference, payload, s.ttl)
	pipe.Set(ctx, userKeyPrefix+intent.UserID, payload, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *IntentStore) FindByReference(ctx context.Context, reference string) (*entity.CheckoutIntent, error) {
	return s.find(ctx, refKeyPrefix+reference)
}

func (s *IntentStore) FindByUser(ctx context.Context, userID string) (*entity.CheckoutIntent, error) {
	return s.find(ctx, userKeyPrefix+userID)
}

// Consume removes the intent after a terminal outcome. The user slot is
// only cleared while it still holds the same reference: a newer initiation
// must not lose its slot to the consumption of an older attempt.
func (s *IntentStore) Consume(ctx context.Context, intent *entity.CheckoutIntent) error {
	if err := s.client.Del(ctx, refKeyPrefix+intent.Reference).Err(); err != nil {
		return err
	}

	current, err := s.find(ctx, userKeyPrefix+intent.UserID)
	if err != nil {
		return err
	}
	if current != nil && current.Reference == intent.Reference {
		return s.client.Del(ctx, userKeyPrefix+intent.UserID).Err()
	}
	return nil
}

// ListStale returns intents created before the cutoff, up to limit. Used by
// the reconcile sweep to catch users who paid but never returned.
func (s *IntentStore) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*entity.CheckoutIntent, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		items  []*entity.CheckoutIntent
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, refKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			intent, err := s.find(ctx, key)
			if err != nil {
				return nil, err
			}
			if intent == nil || !intent.CreatedAt.Before(cutoff) {
				continue
			}
			items = append(items, intent)
			if len(items) >= limit {
				return items, nil
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return items, nil
}

func (s *IntentStore) find(ctx context.Context, key string) (*entity.CheckoutIntent, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var intent entity.CheckoutIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
