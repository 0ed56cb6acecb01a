package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"buildboard/internal/model"
)

type DeliverableRepository struct {
	db *pgxpool.Pool
}

func NewDeliverableRepository(db *pgxpool.Pool) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

func (r *DeliverableRepository) Insert(ctx context.Context, d *model.Deliverable) error {
	query := `
        INSERT INTO deliverables (id, project_id, file_url, uploaded_at)
        VALUES ($1, $2, $3, NOW())
    `
	_, err := r.db.Exec(ctx, query, d.ID, d.ProjectID, d.FileURL)
	return err
}

func (r *DeliverableRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Deliverable, error) {
	query := `
        SELECT id, project_id, file_url, uploaded_at
        FROM deliverables WHERE project_id = $1 ORDER BY uploaded_at ASC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.Deliverable
	for rows.Next() {
		var d model.Deliverable
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.FileURL, &d.UploadedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
