package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"credit-scoring-api/internal/model"
)

type PredictionRepository struct {
	pool *pgxpool.Pool
}

func NewPredictionRepository(pool *pgxpool.Pool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

// Insert appends one decision and returns it with the identifier and
// timestamp assigned by the database. A single INSERT keeps the write
// atomic; the sequence guarantees monotonically increasing ids.
func (r *PredictionRepository) Insert(ctx context.Context, d model.Decision) (model.Decision, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO predictions (user_id, age, income, credit_amount, duration_months, decision, probability, model_version, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		d.UserID, d.Age, d.Income, d.CreditAmount, d.DurationMonths,
		d.Outcome, d.Probability, d.ModelVersion, d.ClientIP).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return model.Decision{}, fmt.Errorf("insert prediction: %w", err)
	}
	return d, nil
}

func (r *PredictionRepository) ListByUser(ctx context.Context, userID int64, offset int, limit int) ([]model.Decision, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, age, income, credit_amount, duration_months, decision, probability, model_version, ip_address, created_at
		 FROM predictions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 OFFSET $2 LIMIT $3`,
		userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	decisions := make([]model.Decision, 0)
	for rows.Next() {
		var d model.Decision
		if err := rows.Scan(&d.ID, &d.UserID, &d.Age, &d.Income, &d.CreditAmount, &d.DurationMonths,
			&d.Outcome, &d.Probability, &d.ModelVersion, &d.ClientIP, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// StatsByUser computes the per-user aggregate in a single pass over the
// ledger. The approval rate is derived by the service layer.
func (r *PredictionRepository) StatsByUser(ctx context.Context, userID int64) (model.DecisionStats, error) {
	var stats model.DecisionStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE decision = $2),
		        COUNT(*) FILTER (WHERE decision = $3)
		 FROM predictions WHERE user_id = $1`,
		userID, model.OutcomeApproved, model.OutcomeRejected).
		Scan(&stats.Total, &stats.Approved, &stats.Rejected)
	if err != nil {
		return model.DecisionStats{}, fmt.Errorf("prediction stats: %w", err)
	}
	return stats, nil
}

func (r *PredictionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return count, nil
}
