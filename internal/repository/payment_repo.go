package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buildboard/internal/model"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Insert 写入一笔支付。payments 上有部分唯一索引
// (project_id) WHERE status = 'PENDING'，并发重试只有一笔能落库，
// 撞索引的返回 ErrDuplicate。
func (r *PaymentRepository) Insert(ctx context.Context, p *model.Payment) error {
	query := `
        INSERT INTO payments (id, project_id, buyer_id, amount, status, payment_method, transaction_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
    `
	_, err := r.db.Exec(ctx, query,
		p.ID, p.ProjectID, p.BuyerID, p.Amount, p.Status, p.PaymentMethod, p.TransactionID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	query := `
        SELECT id, project_id, buyer_id, amount, status, payment_method, transaction_id, created_at, updated_at
        FROM payments WHERE id = $1
    `
	var p model.Payment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProjectID, &p.BuyerID, &p.Amount, &p.Status,
		&p.PaymentMethod, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasActiveOrCompleted 项目上是否已有 PENDING 或 COMPLETED 的支付。
// FAILED 的不算，允许重新发起。
func (r *PaymentRepository) HasActiveOrCompleted(ctx context.Context, projectID string) (bool, error) {
	query := `SELECT COUNT(*) FROM payments WHERE project_id = $1 AND status IN ($2, $3)`
	var count int
	err := r.db.QueryRow(ctx, query, projectID, model.PaymentPending, model.PaymentCompleted).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed 条件推进 PENDING → 终态，同时写入交易号
func (r *PaymentRepository) MarkProcessed(ctx context.Context, paymentID, status, transactionID string) (bool, error) {
	query := `
        UPDATE payments SET status = $2, transaction_id = $3, updated_at = NOW()
        WHERE id = $1 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, paymentID, status, transactionID, model.PaymentPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Payment, error) {
	query := `
        SELECT id, project_id, buyer_id, amount, status, payment_method, transaction_id, created_at, updated_at
        FROM payments WHERE project_id = $1 ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID, &p.ProjectID, &p.BuyerID, &p.Amount, &p.Status,
			&p.PaymentMethod, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
