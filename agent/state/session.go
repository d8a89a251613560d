package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrEmptySlug = errors.New("active shop slug is empty")

const (
	fieldSlug            = "slug"
	fieldLastInteraction = "last_interaction"
)

// Session records which shop a multi-shop sender is currently piloting.
// It only exists for senders administering two or more shops and lives until
// an explicit reset.
type Session struct {
	Phone           string
	ActiveShopSlug  string
	LastInteraction time.Time
}

func NewSession(phone string, slug string, now time.Time) *Session {
	return &Session{
		Phone:           phone,
		ActiveShopSlug:  strings.TrimSpace(slug),
		LastInteraction: now.UTC(),
	}
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.Phone) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.ActiveShopSlug) == "" {
		return ErrEmptySlug
	}
	return nil
}

func (s *Session) hashFields() []any {
	return []any{
		fieldSlug, s.ActiveShopSlug,
		fieldLastInteraction, formatInteraction(s.LastInteraction),
	}
}

// sessionFromHash rebuilds a session from a flat HGETALL reply.
func sessionFromHash(phone string, flat []string) (*Session, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("odd hash reply length %d", len(flat))
	}

	sess := &Session{Phone: phone}
	for i := 0; i < len(flat); i += 2 {
		switch flat[i] {
		case fieldSlug:
			sess.ActiveShopSlug = flat[i+1]
		case fieldLastInteraction:
			at, err := time.Parse(time.RFC3339Nano, flat[i+1])
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", fieldLastInteraction, err)
			}
			sess.LastInteraction = at.UTC()
		}
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return sess, nil
}

func formatInteraction(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
