package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"buildboard/internal/model"
)

// NotificationLogRepository 投递结果落库，供排障和审计用
type NotificationLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationLogRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationLogRepository {
	return &NotificationLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *NotificationLogRepository) Record(ctx context.Context, entry *model.NotificationLog) error {
	query := `
        INSERT INTO notification_logs (job_id, kind, recipient, status, error, attempt, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
    `
	_, err := r.db.Exec(ctx, query,
		entry.JobID, entry.Kind, entry.Recipient, entry.Status, entry.Error, entry.Attempt,
	)
	if err != nil {
		r.logger.Error("Failed to record notification log",
			zap.String("job_id", entry.JobID),
			zap.Error(err),
		)
	}
	return err
}

func (r *NotificationLogRepository) ListByJob(ctx context.Context, jobID string) ([]*model.NotificationLog, error) {
	query := `
        SELECT id, job_id, kind, recipient, status, error, attempt, created_at
        FROM notification_logs WHERE job_id = $1 ORDER BY attempt ASC
    `
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*model.NotificationLog
	for rows.Next() {
		var l model.NotificationLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.Kind, &l.Recipient, &l.Status, &l.Error, &l.Attempt, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
