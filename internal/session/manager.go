// Package session owns the lifecycle of order conversation state: loading,
// creating, resetting and sweeping sessions through the store.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/store"
)

// Manager wraps the store with session lifecycle operations.
type Manager struct {
	store store.Store
	ttl   time.Duration
}

// NewManager creates a session manager with the default idle TTL.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st, ttl: models.SessionIdleTTL}
}

// NewManagerWithTTL creates a session manager with a custom idle TTL.
func NewManagerWithTTL(st store.Store, ttl time.Duration) *Manager {
	return &Manager{store: st, ttl: ttl}
}

// Get loads the session for a (business, phone) pair, or nil when none
// exists.
func (m *Manager) Get(businessID, phoneNumber string) (*models.OrderSession, error) {
	return m.store.GetSession(businessID, phoneNumber)
}

// Create starts a fresh session in the initial state and persists it.
func (m *Manager) Create(businessID, phoneNumber string) (*models.OrderSession, error) {
	sess := models.NewOrderSession(businessID, phoneNumber)
	if err := m.store.SaveSession(*sess); err != nil {
		slog.Error("Session Create save failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("Session created", "businessID", businessID, "phone", phoneNumber)
	return sess, nil
}

// Save persists the session after a completed turn, stamping the
// interaction time so the sweep treats it as fresh.
func (m *Manager) Save(sess *models.OrderSession) error {
	sess.Touch()
	if err := m.store.SaveSession(*sess); err != nil {
		slog.Error("Session Save failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Reset returns the session to its initial state and persists it.
func (m *Manager) Reset(sess *models.OrderSession) error {
	sess.Reset()
	if err := m.store.SaveSession(*sess); err != nil {
		slog.Error("Session Reset save failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
		return fmt.Errorf("failed to reset session: %w", err)
	}
	slog.Info("Session reset", "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
	return nil
}

// Delete removes the session.
func (m *Manager) Delete(businessID, phoneNumber string) error {
	return m.store.DeleteSession(businessID, phoneNumber)
}

// Sweep deletes sessions idle beyond the TTL and sessions left in the
// terminal CANCELLED state. The cutoff is captured before listing so a turn
// that lands mid-sweep keeps its session: a session refreshed after the
// sweep started no longer matches the listed last_interaction and is
// re-checked before deletion.
func (m *Manager) Sweep() (int, error) {
	sweepStart := time.Now()
	cutoff := sweepStart.Add(-m.ttl)
	sessions, err := m.store.ListSweepableSessions(cutoff)
	if err != nil {
		slog.Error("Session Sweep list failed", "error", err)
		return 0, fmt.Errorf("failed to list sweepable sessions: %w", err)
	}

	deleted := 0
	for _, sess := range sessions {
		// Re-read: an active turn may have refreshed the session between
		// listing and deletion. The active turn's write wins.
		current, err := m.store.GetSession(sess.BusinessID, sess.PhoneNumber)
		if err != nil || current == nil {
			continue
		}
		if current.CurrentState != models.StateCancelled && !current.LastInteraction.Before(cutoff) {
			continue
		}
		if err := m.store.DeleteSession(sess.BusinessID, sess.PhoneNumber); err != nil {
			slog.Error("Session Sweep delete failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		slog.Info("Session sweep completed", "deleted", deleted, "duration", time.Since(sweepStart))
	}
	return deleted, nil
}
