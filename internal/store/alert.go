package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"regwatch.co/sentinel/internal/model"
)

type alertStore struct {
	pool *pgxpool.Pool
}

func newAlertStore(pool *pgxpool.Pool) AlertStore {
	return &alertStore{pool: pool}
}

func (s *alertStore) Create(ctx context.Context, alert *model.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, source_id, update_type, severity, summary, impact_analysis, detected_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`,
		alert.ID,
		alert.SourceID,
		alert.UpdateType,
		alert.Severity,
		alert.Summary,
		alert.ImpactAnalysis,
		alert.DetectedAt,
	)
	return err
}

func (s *alertStore) GetByID(ctx context.Context, id int64) (*model.Alert, error) {
	var a model.Alert
	err := s.pool.QueryRow(ctx, `
		SELECT id, source_id, update_type, severity, summary, impact_analysis, detected_at, notified
		FROM alerts
		WHERE id = $1`, id,
	).Scan(&a.ID, &a.SourceID, &a.UpdateType, &a.Severity, &a.Summary, &a.ImpactAnalysis, &a.DetectedAt, &a.Notified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *alertStore) List(ctx context.Context, filter AlertFilter) ([]model.Alert, error) {
	var (
		where []string
		args  []any
	)

	if len(filter.SourceIDs) > 0 {
		args = append(args, filter.SourceIDs)
		where = append(where, fmt.Sprintf("source_id = ANY($%d)", len(args)))
	}
	if filter.Notified != nil {
		args = append(args, *filter.Notified)
		where = append(where, fmt.Sprintf("notified = $%d", len(args)))
	}

	query := `
		SELECT id, source_id, update_type, severity, summary, impact_analysis, detected_at, notified
		FROM alerts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY detected_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]model.Alert, 0)
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.SourceID, &a.UpdateType, &a.Severity, &a.Summary, &a.ImpactAnalysis, &a.DetectedAt, &a.Notified); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *alertStore) MarkNotified(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET notified = TRUE WHERE id = $1`, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
