package designer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

type mockSessionKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockSessionKV() *mockSessionKV {
	return &mockSessionKV{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockSessionKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttls[key] = ttl
	return nil
}

func (m *mockSessionKV) Get(ctx context.Context, key string) (string, error) {
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockSessionKV) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockSessionKV) DesignSessionKey(sessionID string) string {
	return "sf:design:" + sessionID
}

func newTestSessionStore() (*SessionStore, *mockSessionKV) {
	kv := newMockSessionKV()
	return &SessionStore{kv: kv, keyer: kv, ttl: 24 * time.Hour}, kv
}

func TestSessionStoreMissingIsNotFound(t *testing.T) {
	store, _ := newTestSessionStore()

	_, err := store.Load(context.Background(), "owner-1", "nope")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, kv := newTestSessionStore()
	ctx := context.Background()

	session := Session{
		ID:        "sess-1",
		OwnerID:   "owner-1",
		ProductID: uuid.New(),
		Title:     "Classic Tee",
		Color:     "Black",
		Size:      "M",
		PrintArea: PrintArea{X: 10, Y: 20, Width: 300, Height: 200},
	}
	element, err := newTextElement(session.PrintArea, TextInput{Content: "hello"})
	require.NoError(t, err)
	session.Elements = []Element{element}

	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, 24*time.Hour, kv.ttls[kv.DesignSessionKey("sess-1")])

	loaded, err := store.Load(ctx, "owner-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Classic Tee", loaded.Title)
	assert.False(t, loaded.UpdatedAt.IsZero())
	require.Len(t, loaded.Elements, 1)
	assert.Equal(t, element.ID, loaded.Elements[0].ID)
	assert.Equal(t, "hello", loaded.Elements[0].Spec.Text.Content)
}

func TestSessionStoreEnforcesOwnership(t *testing.T) {
	store, _ := newTestSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{ID: "sess-1", OwnerID: "owner-1"}))

	_, err := store.Load(ctx, "owner-2", "sess-1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestSessionStoreMalformedIsNotFound(t *testing.T) {
	store, kv := newTestSessionStore()
	kv.data[kv.DesignSessionKey("sess-1")] = "{broken"

	_, err := store.Load(context.Background(), "owner-1", "sess-1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSessionStoreDelete(t *testing.T) {
	store, kv := newTestSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{ID: "sess-1", OwnerID: "owner-1"}))
	require.NoError(t, store.Delete(ctx, "sess-1"))
	assert.Empty(t, kv.data)
}
