// Package store provides storage backends for OrderGate.
//
// Sessions, customer profiles and the business directory are persisted in
// SQLite or PostgreSQL; an in-memory store backs tests.
package store

import (
	"sync"
	"time"

	"github.com/tablelink/ordergate/internal/models"
)

// Store is the persistence contract used by the session manager, profile
// manager and engine. Lookup methods return (nil, nil) when the row is
// absent.
type Store interface {
	GetSession(businessID, phoneNumber string) (*models.OrderSession, error)
	SaveSession(s models.OrderSession) error
	DeleteSession(businessID, phoneNumber string) error
	// ListSweepableSessions returns sessions whose last interaction predates
	// the cutoff, plus sessions left in the terminal CANCELLED state.
	ListSweepableSessions(cutoff time.Time) ([]models.OrderSession, error)

	GetBusiness(id string) (*models.Business, error)
	SaveBusiness(b models.Business) error

	GetProfile(businessID, phoneNumber string) (*models.CustomerProfile, error)
	SaveProfile(p models.CustomerProfile) error

	Close() error
}

// Opts holds shared configuration options for persistent stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

type sessionKey struct{ business, phone string }

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[sessionKey]models.OrderSession
	businesses map[string]models.Business
	profiles   map[sessionKey]models.CustomerProfile
	nextAddrID int64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[sessionKey]models.OrderSession),
		businesses: make(map[string]models.Business),
		profiles:   make(map[sessionKey]models.CustomerProfile),
	}
}

// GetSession retrieves a session, or nil when absent.
func (s *InMemoryStore) GetSession(businessID, phoneNumber string) (*models.OrderSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionKey{businessID, phoneNumber}]
	if !ok {
		return nil, nil
	}
	copy := sess
	return &copy, nil
}

// SaveSession stores or replaces a session.
func (s *InMemoryStore) SaveSession(sess models.OrderSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey{sess.BusinessID, sess.PhoneNumber}] = sess
	return nil
}

// DeleteSession removes a session if present.
func (s *InMemoryStore) DeleteSession(businessID, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey{businessID, phoneNumber})
	return nil
}

// ListSweepableSessions returns idle and cancelled sessions.
func (s *InMemoryStore) ListSweepableSessions(cutoff time.Time) ([]models.OrderSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OrderSession
	for _, sess := range s.sessions {
		if sess.LastInteraction.Before(cutoff) || sess.CurrentState == models.StateCancelled {
			out = append(out, sess)
		}
	}
	return out, nil
}

// GetBusiness retrieves a business by id, or nil when absent.
func (s *InMemoryStore) GetBusiness(id string) (*models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.businesses[id]
	if !ok {
		return nil, nil
	}
	copy := b
	return &copy, nil
}

// SaveBusiness stores or replaces a business.
func (s *InMemoryStore) SaveBusiness(b models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[b.ID] = b
	return nil
}

// GetProfile retrieves a customer profile, or nil when absent.
func (s *InMemoryStore) GetProfile(businessID, phoneNumber string) (*models.CustomerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[sessionKey{businessID, phoneNumber}]
	if !ok {
		return nil, nil
	}
	copy := p
	copy.Addresses = append([]models.CustomerAddress(nil), p.Addresses...)
	return &copy, nil
}

// SaveProfile stores or replaces a customer profile, assigning ids to new
// addresses.
func (s *InMemoryStore) SaveProfile(p models.CustomerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range p.Addresses {
		if p.Addresses[i].ID == 0 {
			s.nextAddrID++
			p.Addresses[i].ID = s.nextAddrID
		}
	}
	s.profiles[sessionKey{p.BusinessID, p.PhoneNumber}] = p
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
