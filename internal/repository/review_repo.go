package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buildboard/internal/model"
)

type ReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Insert 每个项目只允许一条评价，唯一索引冲突映射成 ErrDuplicate
func (r *ReviewRepository) Insert(ctx context.Context, rv *model.Review) error {
	query := `
        INSERT INTO reviews (id, project_id, buyer_id, seller_id, rating, comment, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
    `
	_, err := r.db.Exec(ctx, query,
		rv.ID, rv.ProjectID, rv.BuyerID, rv.SellerID, rv.Rating, rv.Comment,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ReviewRepository) FindByProject(ctx context.Context, projectID string) (*model.Review, error) {
	query := `
        SELECT id, project_id, buyer_id, seller_id, rating, comment, created_at, updated_at
        FROM reviews WHERE project_id = $1
    `
	var rv model.Review
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&rv.ID, &rv.ProjectID, &rv.BuyerID, &rv.SellerID,
		&rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepository) ListBySeller(ctx context.Context, sellerID string) ([]*model.Review, error) {
	query := `
        SELECT id, project_id, buyer_id, seller_id, rating, comment, created_at, updated_at
        FROM reviews WHERE seller_id = $1 ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(
			&rv.ID, &rv.ProjectID, &rv.BuyerID, &rv.SellerID,
			&rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, &rv)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepository) Update(ctx context.Context, rv *model.Review) error {
	query := `
        UPDATE reviews SET rating = $2, comment = $3, updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, rv.ID, rv.Rating, rv.Comment)
	return err
}

// SellerRating 卖家评分汇总
func (r *ReviewRepository) SellerRating(ctx context.Context, sellerID string) (avg float64, count int, err error) {
	query := `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE seller_id = $1`
	err = r.db.QueryRow(ctx, query, sellerID).Scan(&avg, &count)
	return avg, count, err
}
