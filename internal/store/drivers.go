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

func CreateDriver(ctx context.Context, db database.DBTX, userID int64) (*models.Driver, error) {
	driver := &models.Driver{UserID: userID}
	err := db.QueryRowContext(ctx,
		`INSERT INTO drivers (user_id, total_cash_collected) VALUES ($1, 0) RETURNING id, total_cash_collected`,
		userID).Scan(&driver.ID, &driver.TotalCashCollected)
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}
	return driver, nil
}

func GetDriver(ctx context.Context, db database.DBTX, id int64) (*models.Driver, error) {
	driver := &models.Driver{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, total_cash_collected FROM drivers WHERE id = $1`,
		id).Scan(&driver.ID, &driver.UserID, &driver.TotalCashCollected)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDriverNotFound
		}
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return driver, nil
}

func AssignDriver(ctx context.Context, db database.DBTX, orderID, driverID int64) (*models.DriverOrder, error) {
	do := &models.DriverOrder{OrderID: orderID, DriverID: driverID}
	err := db.QueryRowContext(ctx,
		`INSERT INTO driver_orders (order_id, driver_id, created_at) VALUES ($1, $2, NOW()) RETURNING id`,
		orderID, driverID).Scan(&do.ID)
	if err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}
	return do, nil
}

// GetDriverOrder loads the assignment locked for update.
func GetDriverOrder(ctx context.Context, db database.DBTX, id int64) (*models.DriverOrder, error) {
	do := &models.DriverOrder{}
	err := db.QueryRowContext(ctx,
		`SELECT id, order_id, driver_id, is_accept, is_completed, cash_collect
		 FROM driver_orders WHERE id = $1 FOR UPDATE`,
		id).Scan(&do.ID, &do.OrderID, &do.DriverID, &do.IsAccept, &do.IsCompleted, &do.CashCollect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrDriverOrderNotFound
		}
		return nil, fmt.Errorf("get driver order: %w", err)
	}
	return do, nil
}

func AcceptDriverOrder(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `UPDATE driver_orders SET is_accept = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("accept driver order: %w", err)
	}
	return expectRow(result, database.ErrDriverOrderNotFound)
}

func CompleteDriverOrder(ctx context.Context, db database.DBTX, id int64, cashCollect bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE driver_orders SET is_completed = TRUE, cash_collect = cash_collect OR $1 WHERE id = $2`,
		cashCollect, id)
	if err != nil {
		return fmt.Errorf("complete driver order: %w", err)
	}
	return expectRow(result, database.ErrDriverOrderNotFound)
}

func AddDriverCash(ctx context.Context, db database.DBTX, driverID int64, amount decimal.Decimal) error {
	result, err := db.ExecContext(ctx,
		`UPDATE drivers SET total_cash_collected = total_cash_collected + $1 WHERE id = $2`,
		amount, driverID)
	if err != nil {
		return fmt.Errorf("add driver cash: %w", err)
	}
	return expectRow(result, database.ErrDriverNotFound)
}

func InsertNotification(ctx context.Context, db database.DBTX, n *models.Notification) error {
	err := db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, title, content, url, type, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
		 RETURNING id, created_at`,
		n.UserID, n.Title, n.Content, n.URL, n.Type).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func ListNotifications(ctx context.Context, db database.DBTX, userID int64) ([]models.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, title, content, url, type, is_read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.URL, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}
