// Package store provides storage backends for OrderGate.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/tablelink/ordergate/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions, profiles and businesses in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; the parent directory
// is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetSession retrieves a session, or nil when absent.
func (s *SQLiteStore) GetSession(businessID, phoneNumber string) (*models.OrderSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM order_sessions WHERE business_id = ? AND phone_number = ?`,
		businessID, phoneNumber)
	sess, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "businessID", businessID, "phone", phoneNumber)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// SaveSession stores or replaces a session row, serializing the cart and
// pending queues to the JSON columns.
func (s *SQLiteStore) SaveSession(sess models.OrderSession) error {
	cartJSON, parentsJSON, toppingsJSON, err := marshalSessionBlobs(sess)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
		return err
	}
	editGroupsJSON, err := json.Marshal(sess.EditGroupsData)
	if err != nil {
		return fmt.Errorf("marshal edit groups failed: %w", err)
	}
	lastPromptJSON, err := json.Marshal(sess.LastPromptPayloads)
	if err != nil {
		return fmt.Errorf("marshal prompt payloads failed: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO order_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_id, phone_number) DO UPDATE SET
			current_state = excluded.current_state,
			profile_state = excluded.profile_state,
			cart_data = excluded.cart_data,
			pending_parents = excluded.pending_parents,
			pending_toppings = excluded.pending_toppings,
			revenue_center_id = excluded.revenue_center_id,
			delivery_method = excluded.delivery_method,
			delivery_address = excluded.delivery_address,
			delivery_charge_id = excluded.delivery_charge_id,
			contact_phone = excluded.contact_phone,
			notes = excluded.notes,
			discount_code = excluded.discount_code,
			discount_type = excluded.discount_type,
			discount_value = excluded.discount_value,
			discount_amount = excluded.discount_amount,
			current_pack_id = excluded.current_pack_id,
			category_id = excluded.category_id,
			subcategory_id = excluded.subcategory_id,
			menu_level = excluded.menu_level,
			is_editing = excluded.is_editing,
			editing_group_id = excluded.editing_group_id,
			edit_groups_data = excluded.edit_groups_data,
			last_prompt_payloads = excluded.last_prompt_payloads,
			last_interaction = excluded.last_interaction`,
		sess.BusinessID, sess.PhoneNumber, string(sess.CurrentState), nilIfEmpty(string(sess.ProfileState)),
		cartJSON, parentsJSON, toppingsJSON,
		sess.RevenueCenterID, nilIfEmpty(sess.DeliveryMethod), nilIfEmpty(sess.DeliveryAddress), nilIfEmpty(sess.DeliveryChargeID),
		nilIfEmpty(sess.ContactPhone), nilIfEmpty(sess.Notes), nilIfEmpty(sess.DiscountCode), nilIfEmpty(sess.DiscountType),
		sess.DiscountValue, sess.DiscountAmount, nilIfEmpty(sess.CurrentPackID),
		nilIfEmpty(sess.CategoryID), nilIfEmpty(sess.SubcategoryID), sess.MenuLevel,
		sess.IsEditing, nilIfEmpty(sess.EditingGroupID), string(editGroupsJSON), string(lastPromptJSON),
		sess.LastInteraction, sess.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "businessID", sess.BusinessID, "phone", sess.PhoneNumber, "state", sess.CurrentState)
	return nil
}

// DeleteSession removes a session row if present.
func (s *SQLiteStore) DeleteSession(businessID, phoneNumber string) error {
	_, err := s.db.Exec(`DELETE FROM order_sessions WHERE business_id = ? AND phone_number = ?`, businessID, phoneNumber)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSweepableSessions returns sessions idle past the cutoff plus sessions
// in the terminal CANCELLED state.
func (s *SQLiteStore) ListSweepableSessions(cutoff time.Time) ([]models.OrderSession, error) {
	rows, err := s.db.Query(`SELECT `+sessionColumns+` FROM order_sessions WHERE last_interaction < ? OR current_state = ?`,
		cutoff, string(models.StateCancelled))
	if err != nil {
		slog.Error("SQLiteStore ListSweepableSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sweepable sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.OrderSession
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			slog.Error("SQLiteStore ListSweepableSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions, nil
}

// GetBusiness retrieves a business by id, or nil when absent.
func (s *SQLiteStore) GetBusiness(id string) (*models.Business, error) {
	var b models.Business
	var authToken, waPhoneID sql.NullString
	err := s.db.QueryRow(`SELECT id, name, restaurant_id, auth_token, wa_phone_id, chat_enabled, timezone, menu_mode FROM businesses WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.RestaurantID, &authToken, &waPhoneID, &b.ChatEnabled, &b.Timezone, &b.MenuMode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetBusiness failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	b.AuthToken = authToken.String
	b.WAPhoneID = waPhoneID.String
	return &b, nil
}

// SaveBusiness stores or replaces a business row.
func (s *SQLiteStore) SaveBusiness(b models.Business) error {
	_, err := s.db.Exec(`
		INSERT INTO businesses (id, name, restaurant_id, auth_token, wa_phone_id, chat_enabled, timezone, menu_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			restaurant_id = excluded.restaurant_id,
			auth_token = excluded.auth_token,
			wa_phone_id = excluded.wa_phone_id,
			chat_enabled = excluded.chat_enabled,
			timezone = excluded.timezone,
			menu_mode = excluded.menu_mode`,
		b.ID, b.Name, b.RestaurantID, nilIfEmpty(b.AuthToken), nilIfEmpty(b.WAPhoneID), b.ChatEnabled, b.Timezone, string(b.MenuMode))
	if err != nil {
		slog.Error("SQLiteStore SaveBusiness failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to save business: %w", err)
	}
	return nil
}

// GetProfile retrieves a customer profile with its addresses, or nil when
// absent.
func (s *SQLiteStore) GetProfile(businessID, phoneNumber string) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	var contactPhone sql.NullString
	err := s.db.QueryRow(`SELECT business_id, phone_number, contact_phone, created_at, updated_at
		FROM customer_profiles WHERE business_id = ? AND phone_number = ?`, businessID, phoneNumber).
		Scan(&p.BusinessID, &p.PhoneNumber, &contactPhone, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	p.ContactPhone = contactPhone.String

	rows, err := s.db.Query(`SELECT id, address, created_at FROM customer_addresses
		WHERE business_id = ? AND phone_number = ? ORDER BY id`, businessID, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.CustomerAddress
		if err := rows.Scan(&a.ID, &a.Address, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address row: %w", err)
		}
		p.Addresses = append(p.Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate address rows: %w", err)
	}
	return &p, nil
}

// SaveProfile stores or replaces a profile and rewrites its address rows in
// one transaction.
func (s *SQLiteStore) SaveProfile(p models.CustomerProfile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO customer_profiles (business_id, phone_number, contact_phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (business_id, phone_number) DO UPDATE SET
			contact_phone = excluded.contact_phone,
			updated_at = excluded.updated_at`,
		p.BusinessID, p.PhoneNumber, nilIfEmpty(p.ContactPhone), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile upsert failed", "error", err, "businessID", p.BusinessID, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM customer_addresses WHERE business_id = ? AND phone_number = ?`,
		p.BusinessID, p.PhoneNumber); err != nil {
		return fmt.Errorf("failed to clear addresses: %w", err)
	}
	for _, a := range p.Addresses {
		created := a.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.Exec(`INSERT INTO customer_addresses (business_id, phone_number, address, created_at) VALUES (?, ?, ?, ?)`,
			p.BusinessID, p.PhoneNumber, a.Address, created); err != nil {
			return fmt.Errorf("failed to insert address: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "businessID", p.BusinessID, "phone", p.PhoneNumber, "addresses", len(p.Addresses))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
