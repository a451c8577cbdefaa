package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres reads card data from the cards table populated by the catalog
// importer.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a Postgres-backed oracle.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

const selectCardSQL = `
	SELECT card_id, name, card_type, mana_cost, COALESCE(power, ''), COALESCE(toughness, '')
	FROM cards
	WHERE card_id = $1`

// GetCardByID implements Oracle.
func (p *Postgres) GetCardByID(ctx context.Context, cardID string) (Card, error) {
	var card Card
	err := p.pool.QueryRow(ctx, selectCardSQL, cardID).Scan(
		&card.ID,
		&card.Name,
		&card.TypeLine,
		&card.ManaCost,
		&card.Power,
		&card.Toughness,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Card{}, fmt.Errorf("%w: %s", ErrNotFound, cardID)
	}
	if err != nil {
		if p.logger != nil {
			p.logger.Error("card lookup failed",
				zap.String("card_id", cardID),
				zap.Error(err),
			)
		}
		return Card{}, fmt.Errorf("query card %s: %w", cardID, err)
	}
	return card, nil
}

// EnsureSchema creates the cards table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cards (
			card_id   TEXT PRIMARY KEY,
			name      TEXT NOT NULL,
			card_type TEXT NOT NULL,
			mana_cost TEXT NOT NULL DEFAULT '',
			power     TEXT,
			toughness TEXT
		)`)
	if err != nil {
		return fmt.Errorf("create cards: %w", err)
	}
	return nil
}

const upsertCardSQL = `
	INSERT INTO cards (card_id, name, card_type, mana_cost, power, toughness)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
	ON CONFLICT (card_id) DO UPDATE SET
		name = EXCLUDED.name,
		card_type = EXCLUDED.card_type,
		mana_cost = EXCLUDED.mana_cost,
		power = EXCLUDED.power,
		toughness = EXCLUDED.toughness`

// Upsert writes cards in batches of batchSize, one transaction per batch.
// It returns the number of cards written.
func (p *Postgres) Upsert(ctx context.Context, cards []Card, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	written := 0
	for start := 0; start < len(cards); start += batchSize {
		end := start + batchSize
		if end > len(cards) {
			end = len(cards)
		}

		batch := &pgx.Batch{}
		for _, c := range cards[start:end] {
			batch.Queue(upsertCardSQL, c.ID, c.Name, c.TypeLine, c.ManaCost, c.Power, c.Toughness)
		}
		err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return written, fmt.Errorf("upsert cards %d-%d: %w", start, end, err)
		}
		written += end - start
		if p.logger != nil {
			p.logger.Debug("card batch written", zap.Int("written", written), zap.Int("total", len(cards)))
		}
	}
	return written, nil
}
