package db

import (
	"context"
	"fmt"
	"time"

	"factflow.app/backend/internal/ledger"
)

// SeenRecords returns every durable seen entry for the user, hash included,
// so a fresh session can rebuild its dedup sets.
func (p *Pool) SeenRecords(ctx context.Context, userKey string) ([]ledger.SeenRecord, error) {
	const query = `
SELECT usf.fact_id, usf.content_hash
FROM factflow.user_seen_facts usf
WHERE usf.user_key = $1
ORDER BY usf.seen_at
`
	rows, err := p.Query(ctx, query, userKey)
	if err != nil {
		return nil, fmt.Errorf("query seen records: %w", err)
	}
	defer rows.Close()

	records := make([]ledger.SeenRecord, 0, 256)
	for rows.Next() {
		var rec ledger.SeenRecord
		if err := rows.Scan(&rec.FactID, &rec.ContentHash); err != nil {
			return nil, fmt.Errorf("scan seen record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen records: %w", err)
	}
	return records, nil
}

// SeenFactIDs returns only the fact ids, for the cheap id-level backstop.
func (p *Pool) SeenFactIDs(ctx context.Context, userKey string) ([]string, error) {
	const query = `
SELECT usf.fact_id
FROM factflow.user_seen_facts usf
WHERE usf.user_key = $1
`
	rows, err := p.Query(ctx, query, userKey)
	if err != nil {
		return nil, fmt.Errorf("query seen fact ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 256)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen fact id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen fact ids: %w", err)
	}
	return ids, nil
}

// UpsertSeenRecord records a fact as seen. A nil liked pointer leaves any
// stored like untouched; repeat upserts refresh the hash and timestamp.
func (p *Pool) UpsertSeenRecord(ctx context.Context, userKey, factID, contentHash string, liked *bool, seenAt time.Time) error {
	const query = `
INSERT INTO factflow.user_seen_facts (user_key, fact_id, content_hash, liked, seen_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_key, fact_id) DO UPDATE SET
	content_hash = CASE WHEN EXCLUDED.content_hash <> '' THEN EXCLUDED.content_hash ELSE factflow.user_seen_facts.content_hash END,
	liked = COALESCE(EXCLUDED.liked, factflow.user_seen_facts.liked),
	seen_at = EXCLUDED.seen_at
`
	if _, err := p.Exec(ctx, query, userKey, factID, contentHash, liked, seenAt.UTC()); err != nil {
		return fmt.Errorf("upsert seen record: %w", err)
	}
	return nil
}
