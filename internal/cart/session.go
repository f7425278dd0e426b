package cart

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

// SessionStore holds guest carts by session token. Get on an unknown or
// expired token returns an empty cart.
type SessionStore interface {
	Get(ctx context.Context, token string) ([]models.CartLine, error)
	Put(ctx context.Context, token string, lines []models.CartLine) error
}

func NewToken() string {
	return uuid.NewString()
}

type session struct {
	lines     []models.CartLine
	expiresAt time.Time
}

// MemorySessions is an in-process SessionStore. Every Put extends the
// session by the configured TTL.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessions) Get(_ context.Context, token string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(s.expiresAt) {
		delete(m.sessions, token)
		return nil, nil
	}
	return slices.Clone(s.lines), nil
}

func (m *MemorySessions) Put(_ context.Context, token string, lines []models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(lines) == 0 {
		delete(m.sessions, token)
		return nil
	}
	m.sessions[token] = session{lines: slices.Clone(lines), expiresAt: m.now().Add(m.ttl)}
	return nil
}

// Sweep drops expired sessions and reports how many it removed.
func (m *MemorySessions) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, s := range m.sessions {
		if !now.Before(s.expiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// guestLines reads and rewrites the whole session on every change. A
// session token has a single writer, the guest's own client.
type guestLines struct {
	sessions SessionStore
	token    string
}

func GuestLines(sessions SessionStore, token string) Lines {
	return &guestLines{sessions: sessions, token: token}
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (g *guestLines) List(ctx context.Context, filter store.CartFilter) ([]models.CartLine, error) {
	lines, err := g.sessions.Get(ctx, g.token)
	if err != nil {
		return nil, err
	}
	out := []models.CartLine{}
	for _, l := range lines {
		if matches(l, filter) {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b models.CartLine) int {
		return cmp.Or(cmp.Compare(a.ShopID, b.ShopID), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func matches(l models.CartLine, filter store.CartFilter) bool {
	if l.IsBuyNow != filter.BuyNow {
		return false
	}
	return len(filter.ShopIDs) == 0 || slices.Contains(filter.ShopIDs, l.ShopID)
}

func (g *guestLines) Get(ctx context.Context, lineID int64) (*models.CartLine, error) {
	lines, err := g.sessions.Get(ctx, g.token)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].ID == lineID {
			return &lines[i], nil
		}
	}
	return nil, database.ErrCartLineNotFound
}

func (g *guestLines) Find(ctx context.Context, productID int64, sizeID, colorID *int64, buyNow bool) (*models.CartLine, error) {
	lines, err := g.sessions.Get(ctx, g.token)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		l := lines[i]
		if l.ProductID == productID && l.IsBuyNow == buyNow && sameID(l.SizeID, sizeID) && sameID(l.ColorID, colorID) {
			return &l, nil
		}
	}
	return nil, nil
}

func (g *guestLines) Insert(ctx context.Context, line *models.CartLine) error {
	lines, err := g.sessions.Get(ctx, g.token)
	if err != nil {
		return err
	}
	var maxID int64
	for _, l := range lines {
		maxID = max(maxID, l.ID)
	}
	line.ID = maxID + 1
	line.CustomerID = nil
	line.CreatedAt = time.Now()
	return g.sessions.Put(ctx, g.token, append(lines, *line))
}

// update applies fn to the line with lineID and writes the session back.
// fn returning false removes the line.
func (g *guestLines) update(ctx context.Context, lineID int64, fn func(*models.CartLine) bool) error {
	lines, err := g.sessions.Get(ctx, g.token)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(lines, func(l models.CartLine) bool { return l.ID == lineID })
	if i < 0 {
		return database.ErrCartLineNotFound
	}
	if !fn(&lines[i]) {
		lines = slices.Delete(lines, i, i+1)
	}
	return g.sessions.Put(ctx, g.token, lines)
}

func (g *guestLines) SetQuantity(ctx context.Context, lineID int64, quantity int) error {
	return g.update(ctx, lineID, func(l *models.CartLine) bool {
		l.Quantity = quantity
		return true
	})
}

func (g *guestLines) Delete(ctx context.Context, lineID int64) error {
	return g.update(ctx, lineID, func(*models.CartLine) bool { return false })
}

func (g *guestLines) Clear(ctx context.Context, filter store.CartFilter) error {
	lines, err := g.sessions.Get(ctx, g.token)
	if err != nil {
		return err
	}
	lines = slices.DeleteFunc(lines, func(l models.CartLine) bool { return matches(l, filter) })
	return g.sessions.Put(ctx, g.token, lines)
}

func (g *guestLines) SetGift(ctx context.Context, lineID int64, gift *models.CartGift) error {
	return g.update(ctx, lineID, func(l *models.CartLine) bool {
		l.Gift = gift
		return true
	})
}
