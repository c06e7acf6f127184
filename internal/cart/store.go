package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/printloom/storefront/pkg/errors"
	redisclient "github.com/printloom/storefront/pkg/redis"
)

type cartKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(owner string) string
}

// Store persists one cart document per owner in Redis. Carts have no TTL;
// they live until cleared.
type Store struct {
	kv    cartKV
	keyer cartKeyer
}

// NewStore constructs the Redis-backed cart store.
func NewStore(client *redisclient.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{kv: client, keyer: client}, nil
}

// Load reads the owner's cart. A missing or malformed document deserializes
// to the empty cart so a corrupt slot never wedges the shopper.
func (s *Store) Load(ctx context.Context, ownerID string) (State, error) {
	if strings.TrimSpace(ownerID) == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	raw, err := s.kv.Get(ctx, s.keyer.CartKey(ownerID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Empty(), nil
		}
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return Empty(), nil
	}
	if state.Items == nil {
		state.Items = []LineItem{}
	}
	return state, nil
}

// Save writes the owner's cart document.
func (s *Store) Save(ctx context.Context, ownerID string, state State) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.kv.Set(ctx, s.keyer.CartKey(ownerID), payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

// Delete removes the owner's cart document entirely.
func (s *Store) Delete(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if err := s.kv.Del(ctx, s.keyer.CartKey(ownerID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}
