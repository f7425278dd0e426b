package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Transaction purposes written to the ledger.
const (
	PurposeOrderEarning    = "order_earning"
	PurposeAdminCommission = "admin_commission"
	PurposeDeliveryCharge  = "delivery_charge"
	PurposeReferralReward  = "referral_reward"
)

// walletForUpdate returns the user's wallet locked for update, creating an
// empty one on first use.
func walletForUpdate(ctx context.Context, db database.DBTX, userID int64) (*models.Wallet, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance, updated_at) VALUES ($1, 0, NOW())
		 ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	wallet := &models.Wallet{}
	err = db.QueryRowContext(ctx,
		`SELECT id, user_id, balance, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return wallet, nil
}

func GetWallet(ctx context.Context, db database.DBTX, userID int64) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, balance, updated_at FROM wallets WHERE user_id = $1`,
		userID).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

// CreditWallet adds amount to the user's wallet and records the credit.
func CreditWallet(ctx context.Context, db database.DBTX, userID int64, amount decimal.Decimal, purpose, memo string) (*models.Transaction, error) {
	return postTransaction(ctx, db, userID, amount, models.TransactionCredit, purpose, memo)
}

// DebitWallet takes amount from the user's wallet and records the debit.
// Balances may go negative: commission is owed even when earnings are
// paid out elsewhere.
func DebitWallet(ctx context.Context, db database.DBTX, userID int64, amount decimal.Decimal, purpose, memo string) (*models.Transaction, error) {
	return postTransaction(ctx, db, userID, amount, models.TransactionDebit, purpose, memo)
}

func postTransaction(ctx context.Context, db database.DBTX, userID int64, amount decimal.Decimal, typ models.TransactionType, purpose, memo string) (*models.Transaction, error) {
	wallet, err := walletForUpdate(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	delta := amount
	if typ == models.TransactionDebit {
		delta = amount.Neg()
	}

	_, err = db.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		delta, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("update wallet balance: %w", err)
	}

	txn := &models.Transaction{
		WalletID: wallet.ID,
		Amount:   amount,
		Type:     typ,
		Purpose:  purpose,
		Memo:     memo,
	}
	err = db.QueryRowContext(ctx,
		`INSERT INTO transactions (wallet_id, amount, type, purpose, memo, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		txn.WalletID, txn.Amount, txn.Type, txn.Purpose, txn.Memo).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	return txn, nil
}

func ListTransactions(ctx context.Context, db database.DBTX, walletID int64) ([]models.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, wallet_id, amount, type, purpose, memo, created_at
		 FROM transactions WHERE wallet_id = $1 ORDER BY id`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Amount, &t.Type, &t.Purpose, &t.Memo, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return txns, nil
}
