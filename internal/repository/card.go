package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/service"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const cardColumns = "c.id, c.card_number, c.owner_name, c.user_id, c.balance, c.status, c.expiry_date, c.created_at, c.updated_at"

// CardRepository provides Postgres-backed card storage. Card numbers are
// encrypted before they hit the database and decrypted on the way out.
type CardRepository struct {
	db     *sql.DB // nil when scoped to a transaction
	q      querier
	cipher *NumberCipher
	inTx   bool
}

// NewCardRepository initializes a new card repository.
func NewCardRepository(db *sql.DB, cipher *NumberCipher) *CardRepository {
	return &CardRepository{db: db, q: db, cipher: cipher}
}

// InTransaction runs fn against a transaction-scoped repository. Row reads
// inside the transaction take row-level locks, so two concurrent transfers
// touching the same card serialize instead of losing an update. A nested
// call joins the enclosing transaction.
func (r *CardRepository) InTransaction(ctx context.Context, fn func(service.CardStore) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &CardRepository{q: tx, cipher: r.cipher, inTx: true}
	if err := fn(txRepo); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Create persists a new card and fills in its assigned id and timestamps.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	encrypted, err := r.cipher.Encrypt(card.Number)
	if err != nil {
		return fmt.Errorf("encrypt card number: %w", err)
	}

	query := `
		INSERT INTO bank.cards (card_number, owner_name, user_id, balance, status, expiry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err = r.q.QueryRowContext(ctx, query, encrypted, card.OwnerName, card.UserID, card.Balance, card.Status, card.ExpiryDate).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindByID retrieves a card regardless of owner.
func (r *CardRepository) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM bank.cards c WHERE c.id = $1%s`, cardColumns, r.lockClause())
	return r.scanCard(r.q.QueryRowContext(ctx, query, id))
}

// FindByIDAndOwner retrieves a card only when it belongs to username.
func (r *CardRepository) FindByIDAndOwner(ctx context.Context, id int64, username string) (*models.Card, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bank.cards c
		JOIN bank.users u ON u.id = c.user_id
		WHERE c.id = $1 AND u.username = $2%s`, cardColumns, r.lockClause())
	return r.scanCard(r.q.QueryRowContext(ctx, query, id, username))
}

// FindAllByOwner lists a user's cards. Search mode matches the owner name
// case-insensitively or the card number as a plain substring; number
// matching has to happen against plaintext, so that mode decrypts the
// owner's cards and filters here instead of in SQL.
func (r *CardRepository) FindAllByOwner(ctx context.Context, username string, q service.ListQuery) (*models.CardPage, error) {
	if q.Search != "" {
		return r.searchByOwner(ctx, username, q)
	}

	where := "u.username = $1"
	args := []any{username}
	if q.Status != "" {
		where += " AND c.status = $2"
		args = append(args, q.Status)
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bank.cards c JOIN bank.users u ON u.id = c.user_id WHERE %s`, where)
	if err := r.q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	page := normalizePage(q.Page)
	query := fmt.Sprintf(`
		SELECT %s
		FROM bank.cards c
		JOIN bank.users u ON u.id = c.user_id
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d`,
		cardColumns, where, orderColumn(page.Sort), page.Size, page.Page*page.Size)
	cards, err := r.queryCards(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return newCardPage(cards, page, total), nil
}

func (r *CardRepository) searchByOwner(ctx context.Context, username string, q service.ListQuery) (*models.CardPage, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bank.cards c
		JOIN bank.users u ON u.id = c.user_id
		WHERE u.username = $1
		ORDER BY %s`, cardColumns, orderColumn(q.Page.Sort))
	cards, err := r.queryCards(ctx, query, username)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(q.Search)
	matched := cards[:0]
	for _, card := range cards {
		if strings.Contains(strings.ToLower(card.OwnerName), search) || strings.Contains(card.Number, q.Search) {
			matched = append(matched, card)
		}
	}

	page := normalizePage(q.Page)
	total := int64(len(matched))
	start := page.Page * page.Size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return newCardPage(matched[start:end], page, total), nil
}

// FindAll lists every card in the system, paginated.
func (r *CardRepository) FindAll(ctx context.Context, p models.PageRequest) (*models.CardPage, error) {
	var total int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank.cards`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	page := normalizePage(p)
	query := fmt.Sprintf(`
		SELECT %s
		FROM bank.cards c
		ORDER BY %s
		LIMIT %d OFFSET %d`, cardColumns, orderColumn(page.Sort), page.Size, page.Page*page.Size)
	cards, err := r.queryCards(ctx, query)
	if err != nil {
		return nil, err
	}
	return newCardPage(cards, page, total), nil
}

// FindAllByExpiryDateBeforeAndStatus selects the sweep batch.
func (r *CardRepository) FindAllByExpiryDateBeforeAndStatus(ctx context.Context, day time.Time, status models.CardStatus) ([]*models.Card, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bank.cards c
		WHERE c.expiry_date < $1 AND c.status = $2
		ORDER BY c.id%s`, cardColumns, r.lockClause())
	return r.queryCards(ctx, query, day, status)
}

// Save updates a card's mutable fields. The number and expiry date are
// immutable after creation.
func (r *CardRepository) Save(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET owner_name = $2, balance = $3, status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, card.ID, card.OwnerName, card.Balance, card.Status)
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	if affected == 0 {
		return models.ErrCardNotFound
	}
	return nil
}

// SaveAll updates several cards. Callers wrap multi-record writes in
// InTransaction; SaveAll itself does not open one.
func (r *CardRepository) SaveAll(ctx context.Context, cards []*models.Card) error {
	for _, card := range cards {
		if err := r.Save(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// ExistsByID reports whether a card exists.
func (r *CardRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bank.cards WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check card existence: %w", err)
	}
	return exists, nil
}

// Delete removes a card permanently.
func (r *CardRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if affected == 0 {
		return models.ErrCardNotFound
	}
	return nil
}

// lockClause returns a row-locking suffix inside transactions.
func (r *CardRepository) lockClause() string {
	if r.inTx {
		return " FOR UPDATE OF c"
	}
	return ""
}

func (r *CardRepository) scanCard(row *sql.Row) (*models.Card, error) {
	card := &models.Card{}
	var encrypted string
	err := row.Scan(&card.ID, &encrypted, &card.OwnerName, &card.UserID, &card.Balance, &card.Status, &card.ExpiryDate, &card.CreatedAt, &card.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	if card.Number, err = r.cipher.Decrypt(encrypted); err != nil {
		return nil, fmt.Errorf("decrypt card number: %w", err)
	}
	return card, nil
}

func (r *CardRepository) queryCards(ctx context.Context, query string, args ...any) ([]*models.Card, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		var encrypted string
		err := rows.Scan(&card.ID, &encrypted, &card.OwnerName, &card.UserID, &card.Balance, &card.Status, &card.ExpiryDate, &card.CreatedAt, &card.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if card.Number, err = r.cipher.Decrypt(encrypted); err != nil {
			return nil, fmt.Errorf("decrypt card number: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	return cards, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(p models.PageRequest) models.PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// orderColumn whitelists sort columns; anything else falls back to id.
func orderColumn(sort string) string {
	switch sort {
	case "balance", "expiry_date", "owner_name", "status":
		return "c." + sort
	default:
		return "c.id"
	}
}

func newCardPage(cards []*models.Card, page models.PageRequest, total int64) *models.CardPage {
	totalPages := int((total + int64(page.Size) - 1) / int64(page.Size))
	if cards == nil {
		cards = []*models.Card{}
	}
	return &models.CardPage{
		Content:       cards,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}
