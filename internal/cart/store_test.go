package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string]string)}
}

func (m *mockKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *mockKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockKV) CartKey(owner string) string {
	return "sf:cart:" + owner
}

func newTestStore() (*Store, *mockKV) {
	kv := newMockKV()
	return &Store{kv: kv, keyer: kv}, kv
}

func TestStoreLoadMissingReturnsEmptyCart(t *testing.T) {
	store, _ := newTestStore()

	state, err := store.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Equal(t, 0, state.TotalItems)
}

func TestStoreLoadMalformedReturnsEmptyCart(t *testing.T) {
	store, kv := newTestStore()
	kv.data[kv.CartKey("owner-1")] = "{not json"

	state, err := store.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, state.Items)
}

func TestStoreRoundTripPreservesOrderAndFields(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	first := testItem(uuid.New(), "Black", "M", 2, 5, "20.00")
	second := testItem(uuid.New(), "White", "L", 1, 3, "25.00")
	second.IsPrintOnDemand = true

	state, err := Apply(Empty(), AddItem{Item: first})
	require.NoError(t, err)
	state, err = Apply(state, AddItem{Item: second})
	require.NoError(t, err)
	state, err = Apply(state, SetShipment{OptionID: uuid.New(), Carrier: "UPS", Price: dec("7.50")})
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "owner-1", state))

	loaded, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, first.ProductID, loaded.Items[0].ProductID)
	assert.Equal(t, second.ProductID, loaded.Items[1].ProductID)
	assert.True(t, loaded.Items[1].IsPrintOnDemand)
	assert.True(t, loaded.Items[0].PriceAfterDiscount.Equal(dec("20.00")))
	require.NotNil(t, loaded.Shipment)
	assert.Equal(t, "UPS", loaded.Shipment.Carrier)
	assert.True(t, loaded.TotalAmount.Equal(state.TotalAmount))
}

func TestStoreDeleteRemovesDocument(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()

	state, err := Apply(Empty(), AddItem{Item: testItem(uuid.New(), "Black", "M", 1, 5, "20.00")})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "owner-1", state))
	require.NoError(t, store.Delete(ctx, "owner-1"))

	if _, ok := kv.data[kv.CartKey("owner-1")]; ok {
		t.Fatal("cart document left behind")
	}
}

func TestStoreRejectsEmptyOwner(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, " "); err == nil {
		t.Fatal("expected error for blank owner")
	}
	if err := store.Save(ctx, "", Empty()); err == nil {
		t.Fatal("expected error for blank owner")
	}
}
