package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/service"
)

// MemoryStore is an in-memory implementation of the card and user store
// contracts. It backs the test suites and local development; semantics
// mirror the Postgres repositories, including copy-on-read and atomic
// transaction scopes.
type MemoryStore struct {
	mu         sync.Mutex
	cards      map[int64]*models.Card
	users      map[int64]*models.User
	nextCardID int64
	nextUserID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cards: make(map[int64]*models.Card),
		users: make(map[int64]*models.User),
	}
}

// InTransaction runs fn against the store under the store lock. On error the
// card table is restored from a snapshot, so partial writes never survive.
func (m *MemoryStore) InTransaction(ctx context.Context, fn func(tx service.CardStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stored structs are never mutated in place (reads return copies and
	// saves insert fresh copies), so a shallow clone is a valid snapshot.
	snapshot := make(map[int64]*models.Card, len(m.cards))
	for id, card := range m.cards {
		snapshot[id] = card
	}

	if err := fn(&memoryTx{m: m}); err != nil {
		m.cards = snapshot
		return err
	}
	return nil
}

// Create assigns an id and stores a copy of the card.
func (m *MemoryStore) Create(ctx context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(card)
}

// FindByID retrieves a card regardless of owner.
func (m *MemoryStore) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByID(id)
}

// FindByIDAndOwner retrieves a card only when it belongs to username.
func (m *MemoryStore) FindByIDAndOwner(ctx context.Context, id int64, username string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByIDAndOwner(id, username)
}

// FindAllByOwner lists a user's cards with the same mode precedence as the
// Postgres store: search, then status filter, then everything.
func (m *MemoryStore) FindAllByOwner(ctx context.Context, username string, q service.ListQuery) (*models.CardPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.Card
	for _, card := range m.cardsOf(username) {
		switch {
		case q.Search != "":
			search := strings.ToLower(q.Search)
			if strings.Contains(strings.ToLower(card.OwnerName), search) || strings.Contains(card.Number, q.Search) {
				matched = append(matched, card)
			}
		case q.Status != "":
			if card.Status == q.Status {
				matched = append(matched, card)
			}
		default:
			matched = append(matched, card)
		}
	}
	return paginate(matched, q.Page), nil
}

// FindAll lists every card, paginated.
func (m *MemoryStore) FindAll(ctx context.Context, page models.PageRequest) (*models.CardPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return paginate(m.allCards(), page), nil
}

// FindAllByExpiryDateBeforeAndStatus selects the sweep batch.
func (m *MemoryStore) FindAllByExpiryDateBeforeAndStatus(ctx context.Context, day time.Time, status models.CardStatus) ([]*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findExpired(day, status), nil
}

// Save replaces a stored card with a copy of the given one.
func (m *MemoryStore) Save(ctx context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(card)
}

// SaveAll replaces several stored cards.
func (m *MemoryStore) SaveAll(ctx context.Context, cards []*models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAll(cards)
}

// ExistsByID reports whether a card exists.
func (m *MemoryStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cards[id]
	return ok, nil
}

// Delete removes a card permanently.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return models.ErrCardNotFound
	}
	delete(m.cards, id)
	return nil
}

// CreateUser stores a copy of the user. It satisfies service.UserStore's
// Create through the Users view. Usernames are unique, matching the
// constraint on bank.users.
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return models.ErrUserExists
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// FindUserByID retrieves a user by id.
func (m *MemoryStore) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// FindUserByUsername retrieves a user by username.
func (m *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// UserExistsByUsername reports whether a username is taken.
func (m *MemoryStore) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// FindAllUsers lists every user ordered by id.
func (m *MemoryStore) FindAllUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Users returns the store as a service.UserStore.
func (m *MemoryStore) Users() service.UserStore {
	return &memoryUsers{m: m}
}

// memoryUsers adapts MemoryStore to the UserStore method names.
type memoryUsers struct {
	m *MemoryStore
}

func (u *memoryUsers) Create(ctx context.Context, user *models.User) error {
	return u.m.CreateUser(ctx, user)
}

func (u *memoryUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return u.m.FindUserByID(ctx, id)
}

func (u *memoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return u.m.FindUserByUsername(ctx, username)
}

func (u *memoryUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return u.m.UserExistsByUsername(ctx, username)
}

func (u *memoryUsers) FindAll(ctx context.Context) ([]*models.User, error) {
	return u.m.FindAllUsers(ctx)
}

// memoryTx is the transaction-scoped view handed to InTransaction callbacks.
// The store lock is already held, so it calls the unlocked internals.
type memoryTx struct {
	m *MemoryStore
}

func (t *memoryTx) InTransaction(ctx context.Context, fn func(tx service.CardStore) error) error {
	return fn(t) // joins the enclosing scope
}

func (t *memoryTx) Create(ctx context.Context, card *models.Card) error {
	return t.m.create(card)
}

func (t *memoryTx) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	return t.m.findByID(id)
}

func (t *memoryTx) FindByIDAndOwner(ctx context.Context, id int64, username string) (*models.Card, error) {
	return t.m.findByIDAndOwner(id, username)
}

func (t *memoryTx) FindAllByOwner(ctx context.Context, username string, q service.ListQuery) (*models.CardPage, error) {
	return paginate(t.m.cardsOf(username), q.Page), nil
}

func (t *memoryTx) FindAll(ctx context.Context, page models.PageRequest) (*models.CardPage, error) {
	return paginate(t.m.allCards(), page), nil
}

func (t *memoryTx) FindAllByExpiryDateBeforeAndStatus(ctx context.Context, day time.Time, status models.CardStatus) ([]*models.Card, error) {
	return t.m.findExpired(day, status), nil
}

func (t *memoryTx) Save(ctx context.Context, card *models.Card) error {
	return t.m.save(card)
}

func (t *memoryTx) SaveAll(ctx context.Context, cards []*models.Card) error {
	return t.m.saveAll(cards)
}

func (t *memoryTx) ExistsByID(ctx context.Context, id int64) (bool, error) {
	_, ok := t.m.cards[id]
	return ok, nil
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := t.m.cards[id]; !ok {
		return models.ErrCardNotFound
	}
	delete(t.m.cards, id)
	return nil
}

// Unlocked internals. Callers hold m.mu.

func (m *MemoryStore) create(card *models.Card) error {
	m.nextCardID++
	card.ID = m.nextCardID
	now := time.Now().UTC()
	card.CreatedAt = now
	card.UpdatedAt = now
	copied := *card
	m.cards[card.ID] = &copied
	return nil
}

func (m *MemoryStore) findByID(id int64) (*models.Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, models.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *MemoryStore) findByIDAndOwner(id int64, username string) (*models.Card, error) {
	card, ok := m.cards[id]
	if !ok || !m.ownedBy(card, username) {
		return nil, models.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *MemoryStore) ownedBy(card *models.Card, username string) bool {
	user, ok := m.users[card.UserID]
	return ok && user.Username == username
}

func (m *MemoryStore) cardsOf(username string) []*models.Card {
	var cards []*models.Card
	for _, card := range m.cards {
		if m.ownedBy(card, username) {
			copied := *card
			cards = append(cards, &copied)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

func (m *MemoryStore) allCards() []*models.Card {
	cards := make([]*models.Card, 0, len(m.cards))
	for _, card := range m.cards {
		copied := *card
		cards = append(cards, &copied)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

func (m *MemoryStore) findExpired(day time.Time, status models.CardStatus) []*models.Card {
	var cards []*models.Card
	for _, card := range m.cards {
		if card.Status == status && card.ExpiryDate.Before(day) {
			copied := *card
			cards = append(cards, &copied)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

func (m *MemoryStore) save(card *models.Card) error {
	if _, ok := m.cards[card.ID]; !ok {
		return models.ErrCardNotFound
	}
	card.UpdatedAt = time.Now().UTC()
	copied := *card
	m.cards[card.ID] = &copied
	return nil
}

func (m *MemoryStore) saveAll(cards []*models.Card) error {
	for _, card := range cards {
		if err := m.save(card); err != nil {
			return err
		}
	}
	return nil
}

func paginate(cards []*models.Card, p models.PageRequest) *models.CardPage {
	page := normalizePage(p)
	total := int64(len(cards))
	start := page.Page * page.Size
	if start > len(cards) {
		start = len(cards)
	}
	end := start + page.Size
	if end > len(cards) {
		end = len(cards)
	}
	return newCardPage(cards[start:end], page, total)
}
