// Package store provides storage backends for OrderGate.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/tablelink/ordergate/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions, profiles and businesses in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetSession retrieves a session, or nil when absent.
func (s *PostgresStore) GetSession(businessID, phoneNumber string) (*models.OrderSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM order_sessions WHERE business_id = $1 AND phone_number = $2`,
		businessID, phoneNumber)
	sess, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "businessID", businessID, "phone", phoneNumber)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// SaveSession stores or replaces a session row.
func (s *PostgresStore) SaveSession(sess models.OrderSession) error {
	cartJSON, parentsJSON, toppingsJSON, err := marshalSessionBlobs(sess)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (business_id, phone_number) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			profile_state = EXCLUDED.profile_state,
			cart_data = EXCLUDED.cart_data,
			pending_parents = EXCLUDED.pending_parents,
			pending_toppings = EXCLUDED.pending_toppings,
			revenue_center_id = EXCLUDED.revenue_center_id,
			delivery_method = EXCLUDED.delivery_method,
			delivery_address = EXCLUDED.delivery_address,
			delivery_charge_id = EXCLUDED.delivery_charge_id,
			contact_phone = EXCLUDED.contact_phone,
			notes = EXCLUDED.notes,
			discount_code = EXCLUDED.discount_code,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			discount_amount = EXCLUDED.discount_amount,
			current_pack_id = EXCLUDED.current_pack_id,
			category_id = EXCLUDED.category_id,
			subcategory_id = EXCLUDED.subcategory_id,
			menu_level = EXCLUDED.menu_level,
			is_editing = EXCLUDED.is_editing,
			editing_group_id = EXCLUDED.editing_group_id,
			edit_groups_data = EXCLUDED.edit_groups_data,
			last_prompt_payloads = EXCLUDED.last_prompt_payloads,
			last_interaction = EXCLUDED.last_interaction`,
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
		slog.Error("PostgresStore SaveSession failed", "error", err, "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "businessID", sess.BusinessID, "phone", sess.PhoneNumber, "state", sess.CurrentState)
	return nil
}

// DeleteSession removes a session row if present.
func (s *PostgresStore) DeleteSession(businessID, phoneNumber string) error {
	_, err := s.db.Exec(`DELETE FROM order_sessions WHERE business_id = $1 AND phone_number = $2`, businessID, phoneNumber)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSweepableSessions returns sessions idle past the cutoff plus sessions
// in the terminal CANCELLED state.
func (s *PostgresStore) ListSweepableSessions(cutoff time.Time) ([]models.OrderSession, error) {
	rows, err := s.db.Query(`SELECT `+sessionColumns+` FROM order_sessions WHERE last_interaction < $1 OR current_state = $2`,
		cutoff, string(models.StateCancelled))
	if err != nil {
		slog.Error("PostgresStore ListSweepableSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sweepable sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.OrderSession
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			slog.Error("PostgresStore ListSweepableSessions scan failed", "error", err)
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
func (s *PostgresStore) GetBusiness(id string) (*models.Business, error) {
	var b models.Business
	var authToken, waPhoneID sql.NullString
	err := s.db.QueryRow(`SELECT id, name, restaurant_id, auth_token, wa_phone_id, chat_enabled, timezone, menu_mode FROM businesses WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.RestaurantID, &authToken, &waPhoneID, &b.ChatEnabled, &b.Timezone, &b.MenuMode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetBusiness failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	b.AuthToken = authToken.String
	b.WAPhoneID = waPhoneID.String
	return &b, nil
}

// SaveBusiness stores or replaces a business row.
func (s *PostgresStore) SaveBusiness(b models.Business) error {
	_, err := s.db.Exec(`
		INSERT INTO businesses (id, name, restaurant_id, auth_token, wa_phone_id, chat_enabled, timezone, menu_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			restaurant_id = EXCLUDED.restaurant_id,
			auth_token = EXCLUDED.auth_token,
			wa_phone_id = EXCLUDED.wa_phone_id,
			chat_enabled = EXCLUDED.chat_enabled,
			timezone = EXCLUDED.timezone,
			menu_mode = EXCLUDED.menu_mode`,
		b.ID, b.Name, b.RestaurantID, nilIfEmpty(b.AuthToken), nilIfEmpty(b.WAPhoneID), b.ChatEnabled, b.Timezone, string(b.MenuMode))
	if err != nil {
		slog.Error("PostgresStore SaveBusiness failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to save business: %w", err)
	}
	return nil
}

// GetProfile retrieves a customer profile with its addresses, or nil when
// absent.
func (s *PostgresStore) GetProfile(businessID, phoneNumber string) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	var contactPhone sql.NullString
	err := s.db.QueryRow(`SELECT business_id, phone_number, contact_phone, created_at, updated_at
		FROM customer_profiles WHERE business_id = $1 AND phone_number = $2`, businessID, phoneNumber).
		Scan(&p.BusinessID, &p.PhoneNumber, &contactPhone, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "businessID", businessID, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	p.ContactPhone = contactPhone.String

	rows, err := s.db.Query(`SELECT id, address, created_at FROM customer_addresses
		WHERE business_id = $1 AND phone_number = $2 ORDER BY id`, businessID, phoneNumber)
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
func (s *PostgresStore) SaveProfile(p models.CustomerProfile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO customer_profiles (business_id, phone_number, contact_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (business_id, phone_number) DO UPDATE SET
			contact_phone = EXCLUDED.contact_phone,
			updated_at = EXCLUDED.updated_at`,
		p.BusinessID, p.PhoneNumber, nilIfEmpty(p.ContactPhone), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProfile upsert failed", "error", err, "businessID", p.BusinessID, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM customer_addresses WHERE business_id = $1 AND phone_number = $2`,
		p.BusinessID, p.PhoneNumber); err != nil {
		return fmt.Errorf("failed to clear addresses: %w", err)
	}
	for _, a := range p.Addresses {
		created := a.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.Exec(`INSERT INTO customer_addresses (business_id, phone_number, address, created_at) VALUES ($1, $2, $3, $4)`,
			p.BusinessID, p.PhoneNumber, a.Address, created); err != nil {
			return fmt.Errorf("failed to insert address: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}
	slog.Debug("PostgresStore SaveProfile succeeded", "businessID", p.BusinessID, "phone", p.PhoneNumber, "addresses", len(p.Addresses))
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
