package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/model"
)

var _ contractx.SessionStore = (*SessionStore)(nil)

// SessionStore keeps whatsapp_sessions rows, one per phone, last writer wins.
type SessionStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func (s *SessionStore) GetActiveSlug(ctx context.Context, phone string) (string, error) {
	row := new(model.SessionRow)
	err := s.db.NewSelect().Model(row).Where("phone = ?", phone).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", contractx.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return row.ActiveShopSlug, nil
}

func (s *SessionStore) SetActiveSlug(ctx context.Context, phone string, slug string) error {
	row := &model.SessionRow{
		Phone:           phone,
		ActiveShopSlug:  slug,
		LastInteraction: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (phone) DO UPDATE").
		Set("active_shop_slug = EXCLUDED.active_shop_slug").
		Set("last_interaction = EXCLUDED.last_interaction").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SessionStore) ClearSession(ctx context.Context, phone string) error {
	if _, err := s.db.NewDelete().
		Model((*model.SessionRow)(nil)).
		Where("phone = ?", phone).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) Touch(ctx context.Context, phone string) error {
	if _, err := s.db.NewUpdate().
		Model((*model.SessionRow)(nil)).
		Set("last_interaction = ?", s.now().UTC()).
		Where("phone = ?", phone).
		Exec(ctx); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
