package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/deck"
)

// Unit is a named, durable snapshot of a deck. Units have replace semantics:
// they are created and deleted whole, never mutated in place.
type Unit struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Cards []deck.Card `json:"cards"`
}

// UnitSummary is the listing row: everything but the card payloads.
type UnitSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"card_count"`
}

type UnitRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewUnitRepo(db *sql.DB, log *zap.Logger) *UnitRepo {
	return &UnitRepo{db: db, log: log}
}

// SaveUnit writes a new unit row and returns its auto-assigned id.
func (r *UnitRepo) SaveUnit(ctx context.Context, name string, cards []deck.Card) (int64, error) {
	payload, err := json.Marshal(cards)
	if err != nil {
		return 0, fmt.Errorf("encode unit cards: %w", err)
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO unit(name, cards) VALUES(?, ?)", name, payload)
	if err != nil {
		return 0, fmt.Errorf("insert unit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("unit id: %w", err)
	}
	r.log.Info("unit saved", zap.Int64("id", id), zap.String("name", name), zap.Int("cards", len(cards)))
	return id, nil
}

// LoadUnit fetches a unit by id; a miss is ErrNotFound.
func (r *UnitRepo) LoadUnit(ctx context.Context, id int64) (*Unit, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, name, cards FROM unit WHERE id = ? LIMIT 1", id)
	var u Unit
	var payload []byte
	if err := row.Scan(&u.ID, &u.Name, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load unit: %w", err)
	}
	if err := json.Unmarshal(payload, &u.Cards); err != nil {
		return nil, fmt.Errorf("%w: unit %d: %v", ErrCorruptState, id, err)
	}
	return &u, nil
}

// DeleteUnit is idempotent; deleting an absent id is not an error.
func (r *UnitRepo) DeleteUnit(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM unit WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return nil
}

// ListUnits enumerates saved units without decoding card payloads beyond a
// count.
func (r *UnitRepo) ListUnits(ctx context.Context) ([]UnitSummary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, cards FROM unit ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []UnitSummary
	for rows.Next() {
		var s UnitSummary
		var payload []byte
		if err := rows.Scan(&s.ID, &s.Name, &payload); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		var cards []deck.Card
		if err := json.Unmarshal(payload, &cards); err != nil {
			// Corrupt rows stay listed so the user can delete them.
			r.log.Warn("unit payload corrupt", zap.Int64("id", s.ID), zap.Error(err))
		}
		s.CardCount = len(cards)
		out = append(out, s)
	}
	return out, rows.Err()
}
