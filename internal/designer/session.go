package designer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/printloom/storefront/pkg/errors"
	redisclient "github.com/printloom/storefront/pkg/redis"
)

// Session is one in-progress design on a print-on-demand blank.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	PrintArea PrintArea `json:"print_area"`
	Elements  []Element `json:"elements"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) findElement(id uuid.UUID) (int, bool) {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

type sessionKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	DesignSessionKey(sessionID string) string
}

// SessionStore persists design sessions in Redis with a sliding TTL.
type SessionStore struct {
	kv    sessionKV
	keyer sessionKeyer
	ttl   time.Duration
}

// NewSessionStore builds a store on the shared Redis client.
func NewSessionStore(client *redisclient.Client, ttl time.Duration) (*SessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &SessionStore{kv: client, keyer: client, ttl: ttl}, nil
}

// Load fetches one session, enforcing ownership. Unlike carts, a missing
// design session is an error: the client must start one explicitly.
func (s *SessionStore) Load(ctx context.Context, ownerID, sessionID string) (Session, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(sessionID) == "" {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "owner and session id are required")
	}

	raw, err := s.kv.Get(ctx, s.keyer.DesignSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Session{}, pkgerrors.New(pkgerrors.CodeNotFound, "design session not found")
		}
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design session")
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, pkgerrors.New(pkgerrors.CodeNotFound, "design session not found")
	}
	if session.OwnerID != ownerID {
		return Session{}, pkgerrors.New(pkgerrors.CodeForbidden, "design session belongs to another shopper")
	}
	if session.Elements == nil {
		session.Elements = []Element{}
	}
	return session, nil
}

// Save writes the session back under the configured TTL.
func (s *SessionStore) Save(ctx context.Context, session Session) error {
	if strings.TrimSpace(session.ID) == "" || strings.TrimSpace(session.OwnerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner and session id are required")
	}
	session.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode design session")
	}
	if err := s.kv.Set(ctx, s.keyer.DesignSessionKey(session.ID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save design session")
	}
	return nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.kv.Del(ctx, s.keyer.DesignSessionKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete design session")
	}
	return nil
}
