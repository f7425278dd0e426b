package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

func CreateUser(ctx context.Context, db database.DBTX, name, email, phone string) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (name, email, phone, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING id, name, email, phone, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, name, email, phone).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func CreateCustomer(ctx context.Context, db database.DBTX, userID int64) (*models.Customer, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO customers (user_id, created_at) VALUES ($1, NOW()) RETURNING id`,
		userID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return GetCustomer(ctx, db, id)
}

func GetCustomer(ctx context.Context, db database.DBTX, id int64) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		SELECT c.id, c.user_id, u.name, u.email, u.phone, c.created_at
		FROM customers c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.UserID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return customer, nil
}

func AddDeviceKey(ctx context.Context, db database.DBTX, userID int64, key string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO device_keys (user_id, key, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id, key) DO NOTHING`,
		userID, key)
	if err != nil {
		return fmt.Errorf("add device key: %w", err)
	}
	return nil
}

// DeviceKeys returns the push tokens registered for userID, oldest first.
func DeviceKeys(ctx context.Context, db database.DBTX, userID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT key FROM device_keys WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan device key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return keys, nil
}

func CreateReferral(ctx context.Context, db database.DBTX, referrerID, referredUserID int64, code string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO referrals (referrer_id, referred_user_id, referral_code, rewarded, created_at)
		 VALUES ($1, $2, $3, FALSE, NOW())`,
		referrerID, referredUserID, code)
	if err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

// PendingReferral locks the unrewarded referral of referredUserID. It
// returns nil when there is none.
func PendingReferral(ctx context.Context, db database.DBTX, referredUserID int64) (*models.Referral, error) {
	ref := &models.Referral{}

	err := db.QueryRowContext(ctx,
		`SELECT id, referrer_id, referred_user_id, referral_code, rewarded
		 FROM referrals
		 WHERE referred_user_id = $1 AND rewarded = FALSE
		 FOR UPDATE`,
		referredUserID).Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.ReferredUserID,
		&ref.ReferralCode,
		&ref.Rewarded,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending referral: %w", err)
	}

	return ref, nil
}

func MarkReferralRewarded(ctx context.Context, db database.DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE referrals SET rewarded = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark referral rewarded: %w", err)
	}
	return nil
}
