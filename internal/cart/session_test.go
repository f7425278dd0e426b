package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionsExpire(t *testing.T) {
	ctx := context.Background()
	now := testNow
	sessions := NewMemorySessions(time.Hour)
	sessions.now = func() time.Time { return now }

	require.NoError(t, sessions.Put(ctx, "a", []models.CartLine{{ID: 1, ProductID: 1, Quantity: 1}}))
	require.NoError(t, sessions.Put(ctx, "b", []models.CartLine{{ID: 1, ProductID: 2, Quantity: 1}}))

	got, err := sessions.Get(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	now = now.Add(2 * time.Hour)
	got, err = sessions.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Equal(t, 1, sessions.Sweep())
}

func TestMemorySessionsReturnCopies(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessions(time.Hour)
	require.NoError(t, sessions.Put(ctx, "a", []models.CartLine{{ID: 1, Quantity: 1}}))

	got, err := sessions.Get(ctx, "a")
	require.NoError(t, err)
	got[0].Quantity = 99

	again, err := sessions.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Quantity)
}

func TestMemorySessionsConcurrentTokens(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessions(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lines := GuestLines(sessions, NewToken())
			assert.NoError(t, lines.Insert(ctx, &models.CartLine{ProductID: int64(i), Quantity: 1}))
		}(i)
	}
	wg.Wait()

	assert.Len(t, sessions.sessions, 20)
}

func TestGuestLinesFilterAndClear(t *testing.T) {
	ctx := context.Background()
	lines := GuestLines(NewMemorySessions(time.Hour), NewToken())

	for _, l := range []models.CartLine{
		{ProductID: 1, ShopID: 10, Quantity: 1},
		{ProductID: 2, ShopID: 4, Quantity: 1},
		{ProductID: 3, ShopID: 4, Quantity: 1, IsBuyNow: true},
	} {
		require.NoError(t, lines.Insert(ctx, &l))
	}

	got, err := lines.List(ctx, store.CartFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].ShopID, "sorted by shop")

	require.NoError(t, lines.Clear(ctx, store.CartFilter{ShopIDs: []int64{4}}))

	got, err = lines.List(ctx, store.CartFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ProductID)

	buyNow, err := lines.List(ctx, store.CartFilter{BuyNow: true})
	require.NoError(t, err)
	assert.Len(t, buyNow, 1)
}

func TestFromGuestItems(t *testing.T) {
	size := int64(2)
	lines := FromGuestItems([]GuestItem{
		{ProductID: 7, ShopID: 1, Quantity: 2, Size: &size, Unit: "kg"},
		{ProductID: 8, ShopID: 1, Quantity: 1, Gift: &GuestGift{ID: 3, ReceiverName: "Ana"}},
	})

	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ID)
	assert.Equal(t, &size, lines[0].SizeID)
	assert.Nil(t, lines[0].CustomerID)
	require.NotNil(t, lines[1].Gift)
	assert.Equal(t, int64(3), lines[1].Gift.GiftID)
	assert.Equal(t, "Ana", lines[1].Gift.ReceiverName)
}
