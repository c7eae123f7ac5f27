package device

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roomyhq/device-trust/pkg/fingerprint"
	"github.com/roomyhq/device-trust/pkg/utils"
)

// DBTX allows the repository to run on either a pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresDeviceRepository implements DeviceRepository using PostgreSQL.
type PostgresDeviceRepository struct {
	db DBTX
}

// NewPostgresDeviceRepository creates a new PostgreSQL device repository.
func NewPostgresDeviceRepository(db DBTX) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

const deviceColumns = `
	id, user_id, fingerprint_hash, display_name, browser, os, device_type,
	region, verified, token, token_expires_at, last_used_at, is_current, created_at
`

// CreateDevice inserts a new device. The devices_user_fingerprint unique
// constraint turns a concurrent duplicate into ErrDeviceExists.
func (r *PostgresDeviceRepository) CreateDevice(ctx context.Context, device Device) (Device, error) {
	query := `
		INSERT INTO devices (
			id, user_id, fingerprint_hash, display_name, browser, os, device_type,
			region, verified, last_used_at, is_current, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + deviceColumns

	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}

	created, err := scanDevice(r.db.QueryRow(ctx, query,
		device.ID,
		device.UserID,
		device.FingerprintHash,
		device.DisplayName,
		utils.ToNullString(device.Browser),
		utils.ToNullString(device.OS),
		utils.ToNullString(string(device.DeviceType)),
		utils.ToNullString(device.Region),
		device.Verified,
		device.LastUsedAt,
		device.IsCurrent,
		device.CreatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Device{}, ErrDeviceExists
		}
		return Device{}, err
	}
	return created, nil
}

// GetDeviceByID retrieves a device by ID.
func (r *PostgresDeviceRepository) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	return r.getOne(ctx, query, deviceID)
}

// GetDeviceByUserAndFingerprint retrieves a device by owner and fingerprint.
func (r *PostgresDeviceRepository) GetDeviceByUserAndFingerprint(ctx context.Context, userID uuid.UUID, fingerprintHash string) (Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 AND fingerprint_hash = $2`
	return r.getOne(ctx, query, userID, fingerprintHash)
}

// GetDeviceByToken retrieves the device carrying the given token string.
func (r *PostgresDeviceRepository) GetDeviceByToken(ctx context.Context, tokenStr string) (Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE token = $1`
	return r.getOne(ctx, query, tokenStr)
}

func (r *PostgresDeviceRepository) getOne(ctx context.Context, query string, args ...interface{}) (Device, error) {
	device, err := scanDevice(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, ErrDeviceNotFound
		}
		return Device{}, err
	}
	return device, nil
}

// FindDevicesByUser returns all devices for a user, newest first.
func (r *PostgresDeviceRepository) FindDevicesByUser(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// TouchDevice updates the last-used timestamp.
func (r *PostgresDeviceRepository) TouchDevice(ctx context.Context, deviceID uuid.UUID, at time.Time) error {
	query := `UPDATE devices SET last_used_at = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, deviceID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// SetCurrentDevice marks one device current and clears its siblings in a
// single statement.
func (r *PostgresDeviceRepository) SetCurrentDevice(ctx context.Context, userID uuid.UUID, deviceID uuid.UUID) error {
	query := `
		UPDATE devices
		SET is_current = (id = $2)
		WHERE user_id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// SetDeviceToken attaches a verification token to a device.
func (r *PostgresDeviceRepository) SetDeviceToken(ctx context.Context, deviceID uuid.UUID, tokenStr string, expiresAt time.Time) error {
	query := `
		UPDATE devices
		SET token = $2,
		    token_expires_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, deviceID, tokenStr, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// MarkDeviceVerified sets the verified flag and clears the token fields.
func (r *PostgresDeviceRepository) MarkDeviceVerified(ctx context.Context, deviceID uuid.UUID, at time.Time) error {
	query := `
		UPDATE devices
		SET verified = TRUE,
		    token = NULL,
		    token_expires_at = NULL,
		    last_used_at = $2
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, deviceID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// RevokeUserDevices revokes every device belonging to the user.
func (r *PostgresDeviceRepository) RevokeUserDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE devices
		SET verified = FALSE,
		    is_current = FALSE,
		    token = NULL,
		    token_expires_at = NULL
		WHERE user_id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// RecordSecurityEvent appends an audit record. Events are never updated.
func (r *PostgresDeviceRepository) RecordSecurityEvent(ctx context.Context, event SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, user_id, event_type, fingerprint, region, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
	}

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.UserID,
		string(event.EventType),
		utils.ToNullString(event.Fingerprint),
		utils.ToNullString(event.Region),
		metadata,
		event.CreatedAt,
	)
	return err
}

// CountSecurityEvents counts events of one type for a user since the given
// time.
func (r *PostgresDeviceRepository) CountSecurityEvents(ctx context.Context, userID uuid.UUID, eventType EventType, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM security_events
		WHERE user_id = $1
		AND event_type = $2
		AND created_at > $3
	`

	var count int64
	err := r.db.QueryRow(ctx, query, userID, string(eventType), since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanDevice(row pgx.Row) (Device, error) {
	var device Device
	var browser, os, deviceType, region *string
	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.FingerprintHash,
		&device.DisplayName,
		&browser,
		&os,
		&deviceType,
		&region,
		&device.Verified,
		&device.TokenString,
		&device.TokenExpiresAt,
		&device.LastUsedAt,
		&device.IsCurrent,
		&device.CreatedAt,
	)
	if err != nil {
		return Device{}, err
	}
	if browser != nil {
		device.Browser = *browser
	}
	if os != nil {
		device.OS = *os
	}
	if deviceType != nil {
		device.DeviceType = fingerprint.DeviceType(*deviceType)
	}
	if region != nil {
		device.Region = *region
	}
	return device, nil
}
