package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// GetOrderBaseTax returns the active order-scope tax rule, nil when the
// platform has none.
func GetOrderBaseTax(ctx context.Context, db database.DBTX) (*models.VatTax, error) {
	tax := &models.VatTax{}

	err := db.QueryRowContext(ctx, `
		SELECT id, name, percentage, deduction
		FROM vat_taxes
		WHERE scope = 'order' AND is_active
		ORDER BY id
		LIMIT 1`).Scan(&tax.ID, &tax.Name, &tax.Percentage, &tax.Deduction)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order base tax: %w", err)
	}

	return tax, nil
}

func GetPlatformSettings(ctx context.Context, db database.DBTX) (*models.PlatformSettings, error) {
	settings := &models.PlatformSettings{}

	err := db.QueryRowContext(ctx, `
		SELECT commission_charge, commission_type, commission, referral_reward
		FROM platform_settings
		WHERE id = 1`).Scan(
		&settings.CommissionCharge,
		&settings.CommissionType,
		&settings.Commission,
		&settings.ReferralReward,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return nil, fmt.Errorf("get platform settings: %w", err)
	}

	return settings, nil
}

func UpdatePlatformSettings(ctx context.Context, db database.DBTX, s models.PlatformSettings) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO platform_settings (id, commission_charge, commission_type, commission, referral_reward)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET commission_charge = EXCLUDED.commission_charge,
		    commission_type = EXCLUDED.commission_type,
		    commission = EXCLUDED.commission,
		    referral_reward = EXCLUDED.referral_reward`,
		s.CommissionCharge, s.CommissionType, s.Commission, s.ReferralReward)
	if err != nil {
		return fmt.Errorf("update platform settings: %w", err)
	}
	return nil
}
