package db

import (
	"context"
	"fmt"
	"strings"

	"factflow.app/backend/internal/feed"
)

// FetchCandidatePool returns up to limit pool facts, newest first. Topic
// hints narrow the pool when present; an empty hint list means all topics.
func (p *Pool) FetchCandidatePool(ctx context.Context, topicHints []string, limit int) ([]feed.Fact, error) {
	if limit <= 0 {
		limit = 2000
	}

	var b strings.Builder
	args := make([]any, 0, len(topicHints)+1)
	b.WriteString(`
SELECT cf.fact_id, cf.topic, cf.content, cf.source_name, cf.source_url
FROM factflow.cached_facts cf
`)
	if len(topicHints) > 0 {
		placeholders := make([]string, 0, len(topicHints))
		for _, topic := range topicHints {
			args = append(args, topic)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		fmt.Fprintf(&b, "WHERE cf.topic IN (%s)\n", strings.Join(placeholders, ", "))
	}
	args = append(args, limit)
	fmt.Fprintf(&b, "ORDER BY cf.created_at DESC\nLIMIT $%d", len(args))

	rows, err := p.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}
	defer rows.Close()

	facts := make([]feed.Fact, 0, 256)
	for rows.Next() {
		var fact feed.Fact
		if err := rows.Scan(&fact.ID, &fact.Topic, &fact.Content, &fact.SourceName, &fact.SourceURL); err != nil {
			return nil, fmt.Errorf("scan candidate fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate facts: %w", err)
	}
	return facts, nil
}

// SaveFacts inserts generated facts into the shared pool inside one
// transaction. Ids already present are left alone.
func (p *Pool) SaveFacts(ctx context.Context, facts []feed.Fact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save facts: %w", err)
	}

	const query = `
INSERT INTO factflow.cached_facts (fact_id, topic, content, source_name, source_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (fact_id) DO NOTHING
`
	for _, fact := range facts {
		if fact.IsAd || strings.TrimSpace(fact.Content) == "" {
			continue
		}
		if _, err := tx.Exec(ctx, query, fact.ID, fact.Topic, fact.Content, fact.SourceName, fact.SourceURL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert cached fact %s: %w", fact.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save facts: %w", err)
	}
	return nil
}

// PoolStats returns the cached fact count per topic.
func (p *Pool) PoolStats(ctx context.Context) (map[string]int64, error) {
	const query = `
SELECT cf.topic, COUNT(*)::BIGINT
FROM factflow.cached_facts cf
GROUP BY cf.topic
`
	rows, err := p.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pool stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64, 16)
	for rows.Next() {
		var topic string
		var count int64
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, fmt.Errorf("scan pool stat: %w", err)
		}
		stats[topic] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool stats: %w", err)
	}
	return stats, nil
}

// FactByID loads a single pool fact.
func (p *Pool) FactByID(ctx context.Context, factID string) (feed.Fact, error) {
	const query = `
SELECT cf.fact_id, cf.topic, cf.content, cf.source_name, cf.source_url
FROM factflow.cached_facts cf
WHERE cf.fact_id = $1
`
	var fact feed.Fact
	err := p.QueryRow(ctx, query, factID).Scan(&fact.ID, &fact.Topic, &fact.Content, &fact.SourceName, &fact.SourceURL)
	if err != nil {
		if IsNoRows(err) {
			return feed.Fact{}, fmt.Errorf("fact %s: %w", factID, ErrNoRows)
		}
		return feed.Fact{}, fmt.Errorf("query fact by id: %w", err)
	}
	return fact, nil
}
