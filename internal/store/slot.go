package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/deck"
)

// DefaultQuotaBytes caps one session slot, mirroring a browser's 5-10MB
// origin storage quota.
const DefaultQuotaBytes = 8 << 20

// SessionSlot persists the active deck of a session under its code. One key,
// one JSON array, size-bounded; an oversized write fails without touching
// the previous payload.
type SessionSlot struct {
	db    *sql.DB
	quota int64
	log   *zap.Logger
}

func NewSessionSlot(db *sql.DB, quota int64, log *zap.Logger) *SessionSlot {
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}
	return &SessionSlot{db: db, quota: quota, log: log}
}

// Save serializes the deck into the slot. A payload above quota returns
// ErrStorageQuotaExceeded; the caller keeps its in-memory state and surfaces
// a notice.
func (s *SessionSlot) Save(ctx context.Context, code string, cards []deck.Card) error {
	payload, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if int64(len(payload)) > s.quota {
		return fmt.Errorf("%w: %d bytes over %d", ErrStorageQuotaExceeded, len(payload), s.quota)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_slot(code, payload, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(code) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		code, payload)
	if err != nil {
		return fmt.Errorf("write session slot: %w", err)
	}
	return nil
}

// Restore reads the slot back. An absent slot is an empty deck; a corrupt
// payload also restores empty but reports ErrCorruptState so the caller can
// log and notify without failing.
func (s *SessionSlot) Restore(ctx context.Context, code string) ([]deck.Card, error) {
	row := s.db.QueryRowContext(ctx, "SELECT payload FROM session_slot WHERE code = ?", code)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read session slot: %w", err)
	}
	var cards []deck.Card
	if err := json.Unmarshal(payload, &cards); err != nil {
		s.log.Warn("session slot corrupt, starting empty", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return cards, nil
}

// Delete drops the slot; absent codes are fine.
func (s *SessionSlot) Delete(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_slot WHERE code = ?", code); err != nil {
		return fmt.Errorf("delete session slot: %w", err)
	}
	return nil
}
