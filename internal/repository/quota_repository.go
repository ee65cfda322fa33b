package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

type QuotaRepository interface {
	TryConsume(ctx context.Context, ownerID int64, amount, defaultLimit int, resetOn time.Time) (bool, string, error)
	ResetExpired(ctx context.Context, today, nextResetOn time.Time) (int64, error)
	GetByOwner(ctx context.Context, ownerID int64) (*models.Quota, error)
	GetGlobal(ctx context.Context) (*models.GlobalQuota, error)
	EnsureGlobal(ctx context.Context, limit int, resetOn time.Time) error
}

type quotaRepository struct {
	db *sql.DB
}

func NewQuotaRepository(db *sql.DB) QuotaRepository {
	return &quotaRepository{db: db}
}

// TryConsume increments the owner and global counters together inside one transaction.
// Each step is a guarded UPDATE, so a counter only moves when it stays within its limit;
// if either guard fails the transaction rolls back and neither counter changes.
// Rows are always locked owner first, then global.
func (r *quotaRepository) TryConsume(ctx context.Context, ownerID int64, amount, defaultLimit int, resetOn time.Time) (allowed bool, deniedBy string, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, "", fmt.Errorf("begin quota tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil || !allowed {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quotas (owner_id, monthly_limit, monthly_used, global_monthly_used, reset_on)
		VALUES ($1, $2, 0, 0, $3)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, defaultLimit, resetOn)
	if err != nil {
		return false, "", fmt.Errorf("ensure quota row: %w", err)
	}

	var ownerUsed int
	err = tx.QueryRowContext(ctx, `
		UPDATE quotas
		SET monthly_used = monthly_used + $2
		WHERE owner_id = $1 AND monthly_used + $2 <= monthly_limit
		RETURNING monthly_used
	`, ownerID, amount).Scan(&ownerUsed)
	if err != nil {
		if isNoRows(err) {
			return false, models.QuotaDeniedByOwner, nil
		}
		return false, "", fmt.Errorf("consume owner quota: %w", err)
	}

	var globalUsed int
	err = tx.QueryRowContext(ctx, `
		UPDATE quota_global
		SET used = used + $1
		WHERE id = 1 AND used + $1 <= monthly_limit
		RETURNING used
	`, amount).Scan(&globalUsed)
	if err != nil {
		if isNoRows(err) {
			return false, models.QuotaDeniedByGlobal, nil
		}
		return false, "", fmt.Errorf("consume global quota: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE quotas SET global_monthly_used = $2 WHERE owner_id = $1`, ownerID, globalUsed); err != nil {
		return false, "", fmt.Errorf("mirror global quota: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, "", fmt.Errorf("commit quota tx: %w", err)
	}
	return true, "", nil
}

// ResetExpired zeroes every counter whose reset_on has arrived and rolls reset_on
// forward. Rows already rolled forward are not matched again, so reruns are no-ops.
func (r *quotaRepository) ResetExpired(ctx context.Context, today, nextResetOn time.Time) (n int64, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE quotas
		SET monthly_used = 0,
			global_monthly_used = 0,
			reset_on = $2
		WHERE reset_on <= $1
	`, today, nextResetOn)
	if err != nil {
		return 0, fmt.Errorf("reset owner quotas: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE quota_global SET used = 0, reset_on = $2 WHERE id = 1 AND reset_on <= $1`, today, nextResetOn); err != nil {
		return 0, fmt.Errorf("reset global quota: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reset tx: %w", err)
	}
	return n, nil
}

func (r *quotaRepository) GetByOwner(ctx context.Context, ownerID int64) (*models.Quota, error) {
	query := `SELECT owner_id, monthly_limit, monthly_used, global_monthly_used, reset_on FROM quotas WHERE owner_id = $1`

	var q models.Quota
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&q.OwnerID, &q.MonthlyLimit, &q.MonthlyUsed, &q.GlobalMonthlyUsed, &q.ResetOn)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quota: %w", err)
	}
	return &q, nil
}

func (r *quotaRepository) GetGlobal(ctx context.Context) (*models.GlobalQuota, error) {
	var g models.GlobalQuota
	err := r.db.QueryRowContext(ctx, `SELECT monthly_limit, used, reset_on FROM quota_global WHERE id = 1`).Scan(&g.MonthlyLimit, &g.Used, &g.ResetOn)
	if err != nil {
		return nil, fmt.Errorf("get global quota: %w", err)
	}
	return &g, nil
}

// EnsureGlobal creates the central counter row or updates its limit.
func (r *quotaRepository) EnsureGlobal(ctx context.Context, limit int, resetOn time.Time) error {
	query := `
		INSERT INTO quota_global (id, monthly_limit, used, reset_on)
		VALUES (1, $1, 0, $2)
		ON CONFLICT (id) DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit
	`
	if _, err := r.db.ExecContext(ctx, query, limit, resetOn); err != nil {
		return fmt.Errorf("ensure global quota: %w", err)
	}
	return nil
}
