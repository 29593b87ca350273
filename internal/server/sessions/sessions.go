// Package sessions manages login sessions with a sliding expiry. Expiry is
// enforced by the document store's TTL, so there is no reaper.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/google/uuid"
)

// Docs is the part of docstore.Store the session store needs.
type Docs interface {
	Insert(ctx context.Context, key string, doc []byte, ttl time.Duration) error
	GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

type Store struct {
	docs  Docs
	now   func() time.Time
	newID func() string
}

func New(docs Docs) *Store {
	return &Store{docs: docs, now: time.Now, newID: uuid.NewString}
}

// Create writes a new session for username that expires after ttl without
// activity.
func (s *Store) Create(ctx context.Context, username string, ttl time.Duration) (*models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		SessionID: s.newID(),
		Username:  username,
		DocType:   models.TypeSession,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	doc, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	if err := s.docs.Insert(ctx, docstore.SessionKey(session.SessionID), doc, ttl); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Extend resets the session's expiry to now+ttl and returns it. A session
// that never existed and one that expired both yield common.ErrSessionExpired.
func (s *Store) Extend(ctx context.Context, sessionID string, ttl time.Duration) (*models.Session, error) {
	if sessionID == "" {
		return nil, common.ErrSessionExpired
	}

	doc, err := s.docs.GetAndTouch(ctx, docstore.SessionKey(sessionID), ttl)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}

	session := &models.Session{}
	if err := json.Unmarshal(doc, session); err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", common.ErrorInternal, sessionID, err)
	}
	// the stored expiresAt is from creation; report the refreshed deadline
	session.ExpiresAt = s.now().UTC().Add(ttl)
	return session, nil
}

// Remove deletes the session and reports whether it still existed.
func (s *Store) Remove(ctx context.Context, sessionID string) (bool, error) {
	err := s.docs.Remove(ctx, docstore.SessionKey(sessionID))
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove session: %w", err)
	}
	return true, nil
}
