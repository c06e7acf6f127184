package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func (m *mockSessionKV) CheckoutSessionKey(owner string) string {
	return "sf:checkout:" + owner
}

func newTestSessionStore() (*SessionStore, *mockSessionKV) {
	kv := newMockSessionKV()
	return &SessionStore{kv: kv, keyer: kv, ttl: 2 * time.Hour}, kv
}

func TestSessionStoreMissingStartsAtStepOne(t *testing.T) {
	store, _ := newTestSessionStore()

	session, err := store.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, StepCustomer, session.Step)
	assert.Nil(t, session.Customer)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, kv := newTestSessionStore()
	ctx := context.Background()

	session := newSession("owner-1")
	session.Step = StepPayment
	session.Customer = &CustomerDetails{FullName: "Jamie Rivera", Email: "jamie@example.com", Phone: "5551234567", IsGuest: true}
	session.Shipping = &ShippingDetails{Name: "Jamie Rivera", Address: "1 Main St", City: "Oakland", State: "CA", Zip: "94601", ShippingOptionID: uuid.New(), Carrier: "UPS"}
	session.Coupon = &AppliedCoupon{Code: "SAVE20", DiscountPercent: 20}

	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, 2*time.Hour, kv.ttls[kv.CheckoutSessionKey("owner-1")])

	loaded, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, StepPayment, loaded.Step)
	require.NotNil(t, loaded.Customer)
	assert.Equal(t, "jamie@example.com", loaded.Customer.Email)
	require.NotNil(t, loaded.Coupon)
	assert.Equal(t, 20, loaded.Coupon.DiscountPercent)
}

func TestSessionStoreMalformedStartsOver(t *testing.T) {
	store, kv := newTestSessionStore()
	kv.data[kv.CheckoutSessionKey("owner-1")] = "{broken"

	session, err := store.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, StepCustomer, session.Step)
}

func TestSessionStoreDelete(t *testing.T) {
	store, kv := newTestSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("owner-1")))
	require.NoError(t, store.Delete(ctx, "owner-1"))
	assert.Empty(t, kv.data)
}
