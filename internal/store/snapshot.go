package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"regwatch.co/sentinel/internal/model"
)

type snapshotStore struct {
	pool *pgxpool.Pool
}

func newSnapshotStore(pool *pgxpool.Pool) SnapshotStore {
	return &snapshotStore{pool: pool}
}

func (s *snapshotStore) Get(ctx context.Context, sourceID string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.pool.QueryRow(ctx, `
		SELECT source_id, content_fingerprint, raw_content, last_scraped_at, last_changed_at
		FROM snapshots
		WHERE source_id = $1`, sourceID,
	).Scan(&snap.SourceID, &snap.ContentFingerprint, &snap.RawContent, &snap.LastScrapedAt, &snap.LastChangedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (s *snapshotStore) Upsert(ctx context.Context, snapshot *model.Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshots (source_id, content_fingerprint, raw_content, last_scraped_at, last_changed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id) DO UPDATE SET
			content_fingerprint = EXCLUDED.content_fingerprint,
			raw_content         = EXCLUDED.raw_content,
			last_scraped_at     = EXCLUDED.last_scraped_at,
			last_changed_at     = EXCLUDED.last_changed_at`,
		snapshot.SourceID,
		snapshot.ContentFingerprint,
		snapshot.RawContent,
		snapshot.LastScrapedAt,
		snapshot.LastChangedAt,
	)
	return err
}

func (s *snapshotStore) TouchScraped(ctx context.Context, sourceID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE snapshots SET last_scraped_at = $2 WHERE source_id = $1`,
		sourceID, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
