// Package session implements the two-tier session authority: a process-local
// map in front of a durable store. Admin sessions live only in the local tier
// — a deliberate single-process deployment constraint — while manager
// sessions are written through to the durable tier and lazily rehydrated
// after a restart.
package session

import (
	"context"
	"sync"
	"time"

	"skyline/api/internal/auth"
	"skyline/api/internal/store"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// DurableStore is the persistent tier. Mongo (store.MongoStore) is the
// default implementation; RedisStore is selected when REDIS_URL is set.
type DurableStore interface {
	SaveSession(ctx context.Context, session store.Session) error
	GetSession(ctx context.Context, token string) (store.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type Authority struct {
	durable       DurableStore
	ttl           time.Duration
	refreshWindow time.Duration
	now           func() time.Time

	mu    sync.Mutex
	local map[string]store.Session
}

func NewAuthority(durable DurableStore, ttl, refreshWindow time.Duration) *Authority {
	return &Authority{
		durable:       durable,
		ttl:           ttl,
		refreshWindow: refreshWindow,
		now:           time.Now,
		local:         make(map[string]store.Session),
	}
}

// Issue creates a session expiring ttl from now. Manager sessions are also
// persisted so they survive a process restart.
func (a *Authority) Issue(ctx context.Context, username, role string) (store.Session, error) {
	token, err := auth.NewToken()
	if err != nil {
		return store.Session{}, err
	}
	now := a.now()
	session := store.Session{
		Token:     token,
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	a.mu.Lock()
	a.local[token] = session
	a.mu.Unlock()

	if role == RoleManager && a.durable != nil {
		if err := a.durable.SaveSession(ctx, session); err != nil {
			a.mu.Lock()
			delete(a.local, token)
			a.mu.Unlock()
			return store.Session{}, err
		}
	}
	return session, nil
}

// Validate resolves a token to its session. Expired sessions are purged from
// both tiers and fail with auth.ErrExpiredToken; unknown tokens fail with
// auth.ErrInvalidToken. A session found with less than the refresh window
// remaining has its expiry pushed forward to exactly now+ttl, so a
// continuously active session never lapses while an idle one expires ttl
// after last use.
func (a *Authority) Validate(ctx context.Context, token string) (store.Session, error) {
	if token == "" {
		return store.Session{}, auth.ErrInvalidToken
	}

	a.mu.Lock()
	session, inLocal := a.local[token]
	a.mu.Unlock()

	if !inLocal {
		if a.durable == nil {
			return store.Session{}, auth.ErrInvalidToken
		}
		durableSession, err := a.durable.GetSession(ctx, token)
		if err == store.ErrNotFound {
			return store.Session{}, auth.ErrInvalidToken
		}
		if err != nil {
			return store.Session{}, err
		}
		session = durableSession
		a.mu.Lock()
		a.local[token] = session
		a.mu.Unlock()
	}

	now := a.now()
	if !now.Before(session.ExpiresAt) {
		a.purge(ctx, session)
		return store.Session{}, auth.ErrExpiredToken
	}

	if session.ExpiresAt.Sub(now) < a.refreshWindow {
		session.ExpiresAt = now.Add(a.ttl)
		a.mu.Lock()
		a.local[token] = session
		a.mu.Unlock()
		if session.Role == RoleManager && a.durable != nil {
			// Refresh persistence is best-effort; the in-memory extension
			// already took effect and the durable copy still holds a valid
			// earlier expiry.
			_ = a.durable.SaveSession(ctx, session)
		}
	}
	return session, nil
}

// Extend validates a token and unconditionally pushes its expiry to now+ttl.
// It backs the explicit refresh endpoint, as opposed to the validation-time
// auto-refresh which only fires inside the refresh window.
func (a *Authority) Extend(ctx context.Context, token string) (store.Session, error) {
	session, err := a.Validate(ctx, token)
	if err != nil {
		return store.Session{}, err
	}
	session.ExpiresAt = a.now().Add(a.ttl)
	a.mu.Lock()
	a.local[token] = session
	a.mu.Unlock()
	if session.Role == RoleManager && a.durable != nil {
		if err := a.durable.SaveSession(ctx, session); err != nil {
			return store.Session{}, err
		}
	}
	return session, nil
}

// Revoke deletes a session from both tiers. Revoking an unknown token is not
// an error.
func (a *Authority) Revoke(ctx context.Context, token string) error {
	a.mu.Lock()
	delete(a.local, token)
	a.mu.Unlock()
	if a.durable != nil {
		return a.durable.DeleteSession(ctx, token)
	}
	return nil
}

func (a *Authority) purge(ctx context.Context, session store.Session) {
	a.mu.Lock()
	delete(a.local, session.Token)
	a.mu.Unlock()
	if session.Role == RoleManager && a.durable != nil {
		_ = a.durable.DeleteSession(ctx, session.Token)
	}
}
